package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// schemaDDL creates the three tables.  Reservations cascade away with
// their movie or user.
var schemaDDL = []string{
	`CREATE TABLE movie (
        id INT AUTO_INCREMENT,
        title VARCHAR(128) NOT NULL,
        director VARCHAR(64) NOT NULL,
        price INT NOT NULL,
        PRIMARY KEY (id),
        UNIQUE (title)
    )`,
	"CREATE TABLE `user` (" + `
        id INT AUTO_INCREMENT,
        name VARCHAR(32) NOT NULL,
        age INT NOT NULL,
        PRIMARY KEY (id),
        UNIQUE (name, age)
    )`,
	`CREATE TABLE reservation (
        movie_id INT NOT NULL,
        user_id INT NOT NULL,
        rating INT,
        FOREIGN KEY (movie_id) REFERENCES movie(id) ON DELETE CASCADE,
        FOREIGN KEY (user_id) REFERENCES ` + "`user`" + `(id) ON DELETE CASCADE,
        UNIQUE (movie_id, user_id)
    )`,
}

// SchemaRepo creates and drops the schema.  The database counts as
// initialized as soon as it holds any table.
type SchemaRepo struct {
	db *sql.DB
}

// NewSchemaRepo returns a SchemaRepo bound to db.
func NewSchemaRepo(db *sql.DB) *SchemaRepo { return &SchemaRepo{db: db} }

// Initialized reports whether the database holds any table.
func (r *SchemaRepo) Initialized(ctx context.Context) (bool, error) {
	tables, err := listTables(ctx, r.db)
	if err != nil {
		return false, err
	}
	return len(tables) > 0, nil
}

// Create creates the movie, user and reservation tables.  It returns
// ErrAlreadyInitialized when any table already exists.
func (r *SchemaRepo) Create(ctx context.Context) error {
	ok, err := r.Initialized(ctx)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	for _, stmt := range schemaDDL {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Drop removes every table in the database.  Foreign key checks are
// disabled on a dedicated connection so the drop order does not matter.
func (r *SchemaRepo) Drop(ctx context.Context) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
		return err
	}
	defer func() { _, _ = conn.ExecContext(context.Background(), "SET FOREIGN_KEY_CHECKS = 1") }()

	tables, err := listTables(ctx, conn)
	if err != nil {
		return err
	}
	for _, t := range tables {
		name := "`" + strings.ReplaceAll(t, "`", "``") + "`"
		if _, err := conn.ExecContext(ctx, "DROP TABLE "+name); err != nil {
			return fmt.Errorf("drop %s: %w", t, err)
		}
	}
	return nil
}

// BulkWriter inserts rows inside one transaction during a bulk load.
type BulkWriter struct {
	tx *sql.Tx
}

// WithBulkWriter runs fn inside a transaction and commits when fn succeeds.
func (r *SchemaRepo) WithBulkWriter(ctx context.Context, fn func(*BulkWriter) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&BulkWriter{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// InsertMovie inserts a movie and returns its id.
func (w *BulkWriter) InsertMovie(ctx context.Context, title, director string, price int) (uint64, error) {
	res, err := w.tx.ExecContext(ctx, "INSERT INTO movie (title, director, price) VALUES (?, ?, ?)", title, director, price)
	if err != nil {
		if mysqlErrNumber(err) == mysqlDupEntry {
			return 0, ErrMovieExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// InsertUser inserts a user and returns its id.
func (w *BulkWriter) InsertUser(ctx context.Context, name string, age int) (uint64, error) {
	res, err := w.tx.ExecContext(ctx, "INSERT INTO `user` (name, age) VALUES (?, ?)", name, age)
	if err != nil {
		if mysqlErrNumber(err) == mysqlDupEntry {
			return 0, ErrUserExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// InsertReservation inserts an unrated reservation.
func (w *BulkWriter) InsertReservation(ctx context.Context, movieID, userID uint64) error {
	_, err := w.tx.ExecContext(ctx, "INSERT INTO reservation (movie_id, user_id) VALUES (?, ?)", movieID, userID)
	if err != nil && mysqlErrNumber(err) == mysqlDupEntry {
		return ErrAlreadyBooked
	}
	return err
}

func listTables(ctx context.Context, q interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
