package personlinks_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/aster/internal/repositories/person"
	"github.com/Ramsey-B/aster/internal/repositories/personlinks"
	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getTestDB(t *testing.T) database.DB {
	t.Helper()

	host := envOr("DB_HOST", "localhost")
	user := envOr("DB_USER_NAME", "postgres")
	pass := envOr("DB_PASSWORD", "postgres")
	name := envOr("DB_NAME", "aster")

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable", host, user, pass, name)
	sqlxDB, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err, "failed to connect to test database")

	driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
	require.NoError(t, err)
	migrations := database.NewMigrationService(getTestLogger(), &database.MigrationConfig{
		MigrationFolderPath: "../../../db/pg",
		AutoRollback:        true,
	})
	require.NoError(t, migrations.Migrate(name, driver))

	return database.NewDatabaseInstance(sqlxDB, getTestLogger())
}

func seedPerson(t *testing.T, ctx context.Context, repo *person.Repository, workspaceID, name string) string {
	t.Helper()
	p, err := repo.Create(ctx, workspaceID, &models.CreatePersonRequest{DisplayName: name})
	require.NoError(t, err)
	return p.ID
}

func exec(t *testing.T, ctx context.Context, db database.DB, query string, args ...any) {
	t.Helper()
	_, err := db.ExecContext(ctx, query, args...)
	require.NoError(t, err)
}

func count(t *testing.T, ctx context.Context, db database.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.GetContext(ctx, &n, query, args...))
	return n
}

func TestPersonLinksRepository_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping postgres test in short mode")
	}

	db := getTestDB(t)
	logger := getTestLogger()
	repo := personlinks.NewRepository(db, logger)
	peopleRepo := person.NewRepository(db, logger)
	ctx := context.Background()

	workspaceID := uuid.New().String()
	keepID := seedPerson(t, ctx, peopleRepo, workspaceID, "Ada Lovelace")
	mergeID := seedPerson(t, ctx, peopleRepo, workspaceID, "A. Lovelace")

	sharedCompany := uuid.New().String()
	mergeOnlyCompany := uuid.New().String()
	sharedTag := uuid.New().String()

	// The shared company and the twitter profile exist on both sides, so
	// relocation must drop the merge person's copy instead of violating
	// the natural-key uniques.
	exec(t, ctx, db, "INSERT INTO company_links (id, workspace_id, person_id, company_id) VALUES ($1, $2, $3, $4)",
		uuid.New().String(), workspaceID, keepID, sharedCompany)
	exec(t, ctx, db, "INSERT INTO company_links (id, workspace_id, person_id, company_id) VALUES ($1, $2, $3, $4)",
		uuid.New().String(), workspaceID, mergeID, sharedCompany)
	exec(t, ctx, db, "INSERT INTO company_links (id, workspace_id, person_id, company_id) VALUES ($1, $2, $3, $4)",
		uuid.New().String(), workspaceID, mergeID, mergeOnlyCompany)
	exec(t, ctx, db, "INSERT INTO tag_links (id, workspace_id, person_id, tag_id) VALUES ($1, $2, $3, $4)",
		uuid.New().String(), workspaceID, mergeID, sharedTag)
	exec(t, ctx, db, "INSERT INTO notes (id, workspace_id, person_id, body) VALUES ($1, $2, $3, $4)",
		uuid.New().String(), workspaceID, mergeID, "met at conference")
	exec(t, ctx, db, "INSERT INTO social_profiles (id, workspace_id, person_id, platform, url) VALUES ($1, $2, $3, $4, $5)",
		uuid.New().String(), workspaceID, keepID, "twitter", "https://twitter.com/ada")
	exec(t, ctx, db, "INSERT INTO social_profiles (id, workspace_id, person_id, platform, url) VALUES ($1, $2, $3, $4, $5)",
		uuid.New().String(), workspaceID, mergeID, "twitter", "https://twitter.com/alovelace")
	exec(t, ctx, db, "INSERT INTO social_profiles (id, workspace_id, person_id, platform, url) VALUES ($1, $2, $3, $4, $5)",
		uuid.New().String(), workspaceID, mergeID, "github", "https://github.com/alovelace")

	require.NoError(t, repo.RepointAll(ctx, workspaceID, keepID, mergeID))

	t.Run("moves rows and dedupes natural-key conflicts", func(t *testing.T) {
		assert.Equal(t, 2, count(t, ctx, db, "SELECT COUNT(*) FROM company_links WHERE workspace_id = $1 AND person_id = $2", workspaceID, keepID))
		assert.Equal(t, 1, count(t, ctx, db, "SELECT COUNT(*) FROM company_links WHERE workspace_id = $1 AND company_id = $2", workspaceID, sharedCompany))
		assert.Equal(t, 1, count(t, ctx, db, "SELECT COUNT(*) FROM tag_links WHERE workspace_id = $1 AND person_id = $2", workspaceID, keepID))
		assert.Equal(t, 1, count(t, ctx, db, "SELECT COUNT(*) FROM notes WHERE workspace_id = $1 AND person_id = $2", workspaceID, keepID))
		assert.Equal(t, 2, count(t, ctx, db, "SELECT COUNT(*) FROM social_profiles WHERE workspace_id = $1 AND person_id = $2", workspaceID, keepID))
	})

	t.Run("keep person's conflicting row survives", func(t *testing.T) {
		var url string
		require.NoError(t, db.GetContext(ctx, &url,
			"SELECT url FROM social_profiles WHERE workspace_id = $1 AND person_id = $2 AND platform = $3",
			workspaceID, keepID, "twitter"))
		assert.Equal(t, "https://twitter.com/ada", url)
	})

	t.Run("no rows left behind on the merge person", func(t *testing.T) {
		for _, table := range []string{"company_links", "tag_links", "interaction_participants", "notes", "social_profiles"} {
			query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE workspace_id = $1 AND person_id = $2", table)
			assert.Zero(t, count(t, ctx, db, query, workspaceID, mergeID), table)
		}
	})

	t.Run("second run changes nothing", func(t *testing.T) {
		require.NoError(t, repo.RepointAll(ctx, workspaceID, keepID, mergeID))
		assert.Equal(t, 2, count(t, ctx, db, "SELECT COUNT(*) FROM company_links WHERE workspace_id = $1 AND person_id = $2", workspaceID, keepID))
		assert.Equal(t, 2, count(t, ctx, db, "SELECT COUNT(*) FROM social_profiles WHERE workspace_id = $1 AND person_id = $2", workspaceID, keepID))
	})
}
