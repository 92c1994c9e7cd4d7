package main

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStatementsStripCommentLines(t *testing.T) {
	// first statement shares its chunk with the file header comments
	statements := sqlStatements(`-- header line one
-- header line two

CREATE TABLE t (
    id INT
);

CREATE INDEX idx_t_id ON t (id);
`)
	require.Len(t, statements, 2)
	assert.True(t, strings.HasPrefix(statements[0], "CREATE TABLE"))
	assert.True(t, strings.HasPrefix(statements[1], "CREATE INDEX"))
}

func TestSQLStatementsSkipEmptyAndCommentOnly(t *testing.T) {
	assert.Empty(t, sqlStatements("-- nothing to run;\n\n;  ;\n-- still nothing\n"))
}

func TestChannelLoadsMigrationStatements(t *testing.T) {
	content, err := os.ReadFile("../../migrations/0001_channel_loads.sql")
	require.NoError(t, err)

	statements := sqlStatements(string(content))
	require.Len(t, statements, 4)
	assert.Contains(t, statements[0], "CREATE TABLE IF NOT EXISTS channel_loads")
	for _, stmt := range statements[1:] {
		assert.Contains(t, stmt, "CREATE INDEX IF NOT EXISTS")
	}
}
