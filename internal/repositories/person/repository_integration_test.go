package person_test

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
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

func assertNotFound(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func strPtr(s string) *string { return &s }

func TestPersonRepository_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping postgres test in short mode")
	}

	db := getTestDB(t)
	repo := person.NewRepository(db, getTestLogger())
	ctx := context.Background()

	workspaceID := uuid.New().String()
	otherWorkspace := uuid.New().String()

	strength := 4
	created, err := repo.Create(ctx, workspaceID, &models.CreatePersonRequest{
		Email:                strPtr("  Ada.Lovelace@Example.com "),
		Phone:                strPtr("+44 20 7946 0000"),
		DisplayName:          "Ada Lovelace",
		Location:             strPtr("London"),
		RelationshipStrength: &strength,
		CustomData:           map[string]string{"company": "Analytical Engines"},
		Sources:              []string{"gmail"},
	})
	require.NoError(t, err)

	t.Run("round trips scalar and jsonb fields", func(t *testing.T) {
		got, err := repo.GetByID(ctx, workspaceID, created.ID)
		require.NoError(t, err)

		require.NotNil(t, got.Email)
		assert.Equal(t, "ada.lovelace@example.com", *got.Email)
		require.NotNil(t, got.RelationshipStrength)
		assert.Equal(t, 4, *got.RelationshipStrength)
		assert.Equal(t, map[string]string{"company": "Analytical Engines"}, got.CustomData.GetValue())
		assert.Equal(t, []string{"gmail"}, got.Sources.GetValue())
	})

	t.Run("looks up by normalized email", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, workspaceID, "ADA.LOVELACE@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("rejects a duplicate email in the workspace", func(t *testing.T) {
		_, err := repo.Create(ctx, workspaceID, &models.CreatePersonRequest{
			Email:       strPtr("ada.lovelace@example.com"),
			DisplayName: "Ada L.",
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	})

	t.Run("cross workspace lookup is not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, otherWorkspace, created.ID)
		assertNotFound(t, err)
	})

	t.Run("update applies only the provided fields", func(t *testing.T) {
		updated, err := repo.Update(ctx, workspaceID, created.ID, &models.UpdatePersonRequest{
			Location: strPtr("Cambridge"),
		})
		require.NoError(t, err)
		require.NotNil(t, updated.Location)
		assert.Equal(t, "Cambridge", *updated.Location)
		assert.Equal(t, "Ada Lovelace", updated.DisplayName)
	})

	t.Run("lists people in the workspace", func(t *testing.T) {
		_, err := repo.Create(ctx, workspaceID, &models.CreatePersonRequest{
			DisplayName: "Charles Babbage",
		})
		require.NoError(t, err)

		list, err := repo.List(ctx, workspaceID, 1, 25)
		require.NoError(t, err)
		assert.Equal(t, 2, list.TotalCount)
		assert.Len(t, list.Items, 2)
		assert.Equal(t, "Ada Lovelace", list.Items[0].DisplayName)
	})

	t.Run("delete then lookup is not found", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, workspaceID, created.ID))
		_, err := repo.GetByID(ctx, workspaceID, created.ID)
		assertNotFound(t, err)
	})
}
