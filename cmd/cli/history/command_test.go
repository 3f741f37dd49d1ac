package history_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	historycmd "github.com/temirov/massmove/cmd/cli/history"
	"github.com/temirov/massmove/internal/batch"
	"github.com/temirov/massmove/internal/history"
	"github.com/temirov/massmove/internal/httpapi"
)

func seedHistoryDatabase(testInstance *testing.T, databasePath string, batchCount int) []string {
	testInstance.Helper()

	historyStore, storeError := history.NewStore(zap.NewNop(), databasePath)
	require.NoError(testInstance, storeError)
	defer historyStore.Close()

	baseInstant := time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)
	batchIdentifiers := make([]string, 0, batchCount)
	for batchIndex := 0; batchIndex < batchCount; batchIndex++ {
		batchIdentifier := uuid.NewString()
		batchIdentifiers = append(batchIdentifiers, batchIdentifier)
		record := history.BatchRecord{
			BatchID:     batchIdentifier,
			Destination: "beta",
			GitUser:     "operator",
			Reason:      "release",
			Total:       1,
			Successful:  1,
			StartedAt:   baseInstant.Add(time.Duration(batchIndex) * time.Minute),
			FinishedAt:  baseInstant.Add(time.Duration(batchIndex)*time.Minute + 30*time.Second),
			Items:       []batch.ItemResult{{CompanyNumber: 10 + batchIndex, Success: true, CountryCode: "AR"}},
		}
		require.NoError(testInstance, historyStore.RecordBatch(context.Background(), record))
	}

	return batchIdentifiers
}

func TestHistoryCommandListsBatches(testInstance *testing.T) {
	databasePath := filepath.Join(testInstance.TempDir(), "history.db")
	batchIdentifiers := seedHistoryDatabase(testInstance, databasePath, 2)
	outputBuffer := &bytes.Buffer{}

	builder := &historycmd.CommandBuilder{
		ServerConfigurationProvider: func() httpapi.Configuration {
			return httpapi.Configuration{HistoryDatabasePath: databasePath}
		},
		OutputWriter: outputBuffer,
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetContext(context.Background())
	command.SetArgs([]string{})

	require.NoError(testInstance, command.Execute())

	renderedOutput := outputBuffer.String()
	require.Contains(testInstance, renderedOutput, batchIdentifiers[0])
	require.Contains(testInstance, renderedOutput, batchIdentifiers[1])
	require.Contains(testInstance, renderedOutput, "1 total, 1 succeeded, 0 failed")
	require.Contains(testInstance, renderedOutput, "CPN 10: OK [AR]")
}

func TestHistoryCommandHonorsLimit(testInstance *testing.T) {
	databasePath := filepath.Join(testInstance.TempDir(), "history.db")
	batchIdentifiers := seedHistoryDatabase(testInstance, databasePath, 3)
	outputBuffer := &bytes.Buffer{}

	builder := &historycmd.CommandBuilder{
		ServerConfigurationProvider: func() httpapi.Configuration {
			return httpapi.Configuration{HistoryDatabasePath: databasePath}
		},
		OutputWriter: outputBuffer,
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetContext(context.Background())
	command.SetArgs([]string{"--limit", "1"})

	require.NoError(testInstance, command.Execute())

	renderedOutput := outputBuffer.String()
	require.Contains(testInstance, renderedOutput, batchIdentifiers[2])
	require.NotContains(testInstance, renderedOutput, batchIdentifiers[0])
}

func TestHistoryCommandReportsEmptyStore(testInstance *testing.T) {
	databasePath := filepath.Join(testInstance.TempDir(), "history.db")
	outputBuffer := &bytes.Buffer{}

	builder := &historycmd.CommandBuilder{
		ServerConfigurationProvider: func() httpapi.Configuration {
			return httpapi.Configuration{HistoryDatabasePath: databasePath}
		},
		OutputWriter: outputBuffer,
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetContext(context.Background())
	command.SetArgs([]string{})

	require.NoError(testInstance, command.Execute())
	require.Equal(testInstance, "No batches recorded.\n", outputBuffer.String())
}

func TestHistoryCommandRequiresConfiguredDatabase(testInstance *testing.T) {
	builder := &historycmd.CommandBuilder{
		ServerConfigurationProvider: func() httpapi.Configuration { return httpapi.Configuration{} },
		OutputWriter:                &bytes.Buffer{},
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetContext(context.Background())
	command.SetArgs([]string{})

	require.Error(testInstance, command.Execute())
}
