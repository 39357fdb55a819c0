// Package sqlite implementa los repositorios del núcleo fiscal sobre un archivo SQLite local,
// el almacén natural de un terminal de punto de venta.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/terencio/fiscal-core/internal/domain/repository"
)

//go:embed schema.sql
var schemaSQL string

// Querier permite usar *sql.DB o *sql.Tx indistintamente en los repositorios.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store almacén SQLite. Una sola conexión: SQLite admite un único escritor y las
// transacciones se abren con BEGIN IMMEDIATE para tomar el bloqueo de escritura al inicio.
type Store struct {
	db *sql.DB
}

// Open crea o abre la base en path y aplica pragmas y esquema. Idempotente.
func Open(path string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_txlock=immediate&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("abrir base sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("conectar base sqlite: %w", err)
	}
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("aplicar esquema: %w", err)
	}
	return &Store{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("ejecutar %q: %w", p, err)
		}
	}
	return nil
}

// Close cierra la conexión.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB acceso directo a la base (tests y herramientas de diagnóstico).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Repositories repos sobre la conexión, para lecturas fuera de transacción.
// No usarlos dentro del callback de TxRunner.Run: la única conexión está ocupada por la transacción.
func (s *Store) Repositories() repository.Repositories {
	return newRepositories(s.db)
}

// TxRunner runner transaccional del almacén.
func (s *Store) TxRunner() *TxRunner {
	return NewTxRunner(s.db)
}

func newRepositories(q Querier) repository.Repositories {
	return repository.Repositories{
		Sequences: NewDocumentSequenceRepository(q),
		Chain:     NewFiscalChainRepository(q),
		Sales:     NewSaleRepository(q),
		Shifts:    NewShiftRepository(q),
	}
}
