package store

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queryTables — таблицы, к которым обращаются SQL-запросы репозиториев.
// Каждая из них должна создаваться стартовой миграцией, иначе запросы
// упадут с "relation does not exist" на чистой базе.
var queryTables = []string{
	"partners",
	"partner_links",
	"link_clicks",
	"clients",
	"payment_requests",
	"payment_request_clients",
	"notifications",
	"notification_reads",
	"chat_messages",
	"reward_settings",
}

func TestMigrationCreatesQueriedTables(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "scripts", "migrations", "00001_init_schema.sql"))
	require.NoError(t, err)
	sql := string(raw)

	created := map[string]bool{}
	re := regexp.MustCompile(`CREATE TABLE IF NOT EXISTS ([a-z_]+)`)
	for _, m := range re.FindAllStringSubmatch(sql, -1) {
		created[m[1]] = true
	}

	for _, table := range queryTables {
		assert.Truef(t, created[table], "миграция не создаёт таблицу %s", table)
	}

	// Внешние ключи на ссылки должны указывать на ту же таблицу,
	// из которой читают репозитории.
	assert.Contains(t, sql, "REFERENCES partner_links (id)")
	assert.False(t, strings.Contains(sql, "REFERENCES links (id)"),
		"внешние ключи ссылаются на несуществующую таблицу links")
}
