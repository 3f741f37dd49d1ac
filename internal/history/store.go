package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/temirov/massmove/internal/batch"
)

const (
	sqliteDriverNameConstant            = "sqlite3"
	sqliteConnectionOptionsConstant     = "?_journal_mode=WAL&_busy_timeout=5000"
	databaseDirectoryPermissions        = 0o755
	directoryCreationErrorTemplate      = "failed to create history directory %s: %w"
	databaseOpenErrorTemplate           = "failed to open history database at %s: %w"
	databasePingErrorTemplate           = "failed to ping history database at %s: %w"
	schemaInitializationErrorTemplate   = "failed to initialize history schema: %w"
	batchInsertErrorTemplate            = "failed to record batch %s: %w"
	itemInsertErrorTemplate             = "failed to record item for batch %s: %w"
	batchQueryErrorTemplate             = "failed to list batches: %w"
	itemQueryErrorTemplate              = "failed to load items for batch %s: %w"
	transactionBeginErrorTemplate       = "failed to begin history transaction: %w"
	transactionCommitErrorTemplate      = "failed to commit history transaction: %w"
	batchRecordedLogMessageConstant     = "batch recorded"
	logFieldBatchIdentifierConstant     = "batch_id"
	logFieldHistoryDatabasePathConstant = "database_path"
)

const schemaStatementConstant = `
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		destination TEXT NOT NULL,
		git_user TEXT NOT NULL,
		reason TEXT NOT NULL,
		total INTEGER NOT NULL,
		successful INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_batches_started_at ON batches(started_at);

	CREATE TABLE IF NOT EXISTS batch_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL REFERENCES batches(id),
		position INTEGER NOT NULL,
		cpn INTEGER NOT NULL,
		success INTEGER NOT NULL,
		country_code TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_batch_items_batch_id ON batch_items(batch_id, position);
`

// BatchRecord captures one completed batch and its per-item outcomes.
type BatchRecord struct {
	BatchID     string
	Destination string
	GitUser     string
	Reason      string
	Total       int
	Successful  int
	Failed      int
	StartedAt   time.Time
	FinishedAt  time.Time
	Items       []batch.ItemResult
}

// Store reads and writes batch records in a SQLite database.
type Store struct {
	logger       *zap.Logger
	database     *sql.DB
	databasePath string
}

// NewStore opens (or creates) the history database at the given path, ensures
// the parent directory exists, and initializes the schema.
func NewStore(logger *zap.Logger, databasePath string) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if parentDirectory := filepath.Dir(databasePath); len(parentDirectory) > 0 {
		if directoryError := os.MkdirAll(parentDirectory, databaseDirectoryPermissions); directoryError != nil {
			return nil, fmt.Errorf(directoryCreationErrorTemplate, parentDirectory, directoryError)
		}
	}

	database, openError := sql.Open(sqliteDriverNameConstant, databasePath+sqliteConnectionOptionsConstant)
	if openError != nil {
		return nil, fmt.Errorf(databaseOpenErrorTemplate, databasePath, openError)
	}

	if pingError := database.Ping(); pingError != nil {
		database.Close()
		return nil, fmt.Errorf(databasePingErrorTemplate, databasePath, pingError)
	}

	if _, schemaError := database.Exec(schemaStatementConstant); schemaError != nil {
		database.Close()
		return nil, fmt.Errorf(schemaInitializationErrorTemplate, schemaError)
	}

	return &Store{logger: logger, database: database, databasePath: databasePath}, nil
}

// Close releases the underlying database handle.
func (store *Store) Close() error {
	return store.database.Close()
}

// RecordBatch persists a batch and its items in one transaction.
func (store *Store) RecordBatch(executionContext context.Context, record BatchRecord) error {
	transaction, beginError := store.database.BeginTx(executionContext, nil)
	if beginError != nil {
		return fmt.Errorf(transactionBeginErrorTemplate, beginError)
	}
	defer transaction.Rollback()

	_, batchInsertError := transaction.ExecContext(
		executionContext,
		`INSERT INTO batches (id, destination, git_user, reason, total, successful, failed, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.BatchID,
		record.Destination,
		record.GitUser,
		record.Reason,
		record.Total,
		record.Successful,
		record.Failed,
		record.StartedAt.Unix(),
		record.FinishedAt.Unix(),
	)
	if batchInsertError != nil {
		return fmt.Errorf(batchInsertErrorTemplate, record.BatchID, batchInsertError)
	}

	for itemPosition, itemResult := range record.Items {
		_, itemInsertError := transaction.ExecContext(
			executionContext,
			`INSERT INTO batch_items (batch_id, position, cpn, success, country_code, error)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			record.BatchID,
			itemPosition,
			itemResult.CompanyNumber,
			itemResult.Success,
			itemResult.CountryCode,
			itemResult.ErrorMessage,
		)
		if itemInsertError != nil {
			return fmt.Errorf(itemInsertErrorTemplate, record.BatchID, itemInsertError)
		}
	}

	if commitError := transaction.Commit(); commitError != nil {
		return fmt.Errorf(transactionCommitErrorTemplate, commitError)
	}

	store.logger.Info(
		batchRecordedLogMessageConstant,
		zap.String(logFieldBatchIdentifierConstant, record.BatchID),
		zap.String(logFieldHistoryDatabasePathConstant, store.databasePath),
	)
	return nil
}

// ListBatches returns up to limit batch records, newest first, with their
// items restored in original request order. A non-positive limit returns all
// batches.
func (store *Store) ListBatches(executionContext context.Context, limit int) ([]BatchRecord, error) {
	batchQuery := `SELECT id, destination, git_user, reason, total, successful, failed, started_at, finished_at
		FROM batches ORDER BY started_at DESC, id DESC`
	queryArguments := []any{}
	if limit > 0 {
		batchQuery += ` LIMIT ?`
		queryArguments = append(queryArguments, limit)
	}

	batchRows, batchQueryError := store.database.QueryContext(executionContext, batchQuery, queryArguments...)
	if batchQueryError != nil {
		return nil, fmt.Errorf(batchQueryErrorTemplate, batchQueryError)
	}
	defer batchRows.Close()

	records := []BatchRecord{}
	for batchRows.Next() {
		var record BatchRecord
		var startedAtSeconds, finishedAtSeconds int64
		scanError := batchRows.Scan(
			&record.BatchID,
			&record.Destination,
			&record.GitUser,
			&record.Reason,
			&record.Total,
			&record.Successful,
			&record.Failed,
			&startedAtSeconds,
			&finishedAtSeconds,
		)
		if scanError != nil {
			return nil, fmt.Errorf(batchQueryErrorTemplate, scanError)
		}
		record.StartedAt = time.Unix(startedAtSeconds, 0).UTC()
		record.FinishedAt = time.Unix(finishedAtSeconds, 0).UTC()
		records = append(records, record)
	}
	if rowsError := batchRows.Err(); rowsError != nil {
		return nil, fmt.Errorf(batchQueryErrorTemplate, rowsError)
	}

	for recordIndex := range records {
		items, itemsError := store.listItems(executionContext, records[recordIndex].BatchID)
		if itemsError != nil {
			return nil, itemsError
		}
		records[recordIndex].Items = items
	}

	return records, nil
}

func (store *Store) listItems(executionContext context.Context, batchIdentifier string) ([]batch.ItemResult, error) {
	itemRows, itemQueryError := store.database.QueryContext(
		executionContext,
		`SELECT cpn, success, country_code, error FROM batch_items WHERE batch_id = ? ORDER BY position`,
		batchIdentifier,
	)
	if itemQueryError != nil {
		return nil, fmt.Errorf(itemQueryErrorTemplate, batchIdentifier, itemQueryError)
	}
	defer itemRows.Close()

	items := []batch.ItemResult{}
	for itemRows.Next() {
		var itemResult batch.ItemResult
		scanError := itemRows.Scan(&itemResult.CompanyNumber, &itemResult.Success, &itemResult.CountryCode, &itemResult.ErrorMessage)
		if scanError != nil {
			return nil, fmt.Errorf(itemQueryErrorTemplate, batchIdentifier, scanError)
		}
		items = append(items, itemResult)
	}
	if rowsError := itemRows.Err(); rowsError != nil {
		return nil, fmt.Errorf(itemQueryErrorTemplate, batchIdentifier, rowsError)
	}

	return items, nil
}
