package merging_test

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

	"github.com/Ramsey-B/aster/internal/repositories/duplicatecandidate"
	"github.com/Ramsey-B/aster/internal/repositories/person"
	"github.com/Ramsey-B/aster/internal/repositories/personlinks"
	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/merging"
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
		MigrationFolderPath: "../../db/pg",
		AutoRollback:        true,
	})
	require.NoError(t, migrations.Migrate(name, driver))

	return database.NewDatabaseInstance(sqlxDB, getTestLogger())
}

func TestEngine_Merge_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping postgres test in short mode")
	}

	db := getTestDB(t)
	logger := getTestLogger()
	peopleRepo := person.NewRepository(db, logger)
	linksRepo := personlinks.NewRepository(db, logger)
	candidateRepo := duplicatecandidate.NewRepository(db, logger)
	engine := merging.NewEngine(logger, db, peopleRepo, linksRepo, candidateRepo, nil)
	ctx := context.Background()

	workspaceID := uuid.New().String()

	keep, err := peopleRepo.Create(ctx, workspaceID, &models.CreatePersonRequest{
		DisplayName: "Ada Lovelace",
		CustomData:  map[string]string{"company": "Acme"},
		Sources:     []string{"gmail"},
	})
	require.NoError(t, err)
	merge, err := peopleRepo.Create(ctx, workspaceID, &models.CreatePersonRequest{
		DisplayName: "A. Lovelace",
		CustomData:  map[string]string{"company": "Other", "city": "London"},
		Sources:     []string{"linkedin"},
	})
	require.NoError(t, err)
	bystander, err := peopleRepo.Create(ctx, workspaceID, &models.CreatePersonRequest{
		DisplayName: "Grace Hopper",
	})
	require.NoError(t, err)

	sharedCompany := uuid.New().String()
	mergeOnlyCompany := uuid.New().String()
	for _, row := range []struct{ personID, companyID string }{
		{keep.ID, sharedCompany},
		{merge.ID, sharedCompany},
		{merge.ID, mergeOnlyCompany},
	} {
		_, err := db.ExecContext(ctx, "INSERT INTO company_links (id, workspace_id, person_id, company_id) VALUES ($1, $2, $3, $4)",
			uuid.New().String(), workspaceID, row.personID, row.companyID)
		require.NoError(t, err)
	}

	pairA, pairB := keep.ID, merge.ID
	if pairB < pairA {
		pairA, pairB = pairB, pairA
	}
	bystanderA, bystanderB := merge.ID, bystander.ID
	if bystanderB < bystanderA {
		bystanderA, bystanderB = bystanderB, bystanderA
	}
	batch := []models.DuplicateCandidate{
		{WorkspaceID: workspaceID, PersonAID: pairA, PersonBID: pairB, Confidence: 0.98, Reason: "email match"},
		{WorkspaceID: workspaceID, PersonAID: bystanderA, PersonBID: bystanderB, Confidence: 0.76, Reason: "name similarity 0.76"},
	}
	require.NoError(t, candidateRepo.ReplacePendingBatch(ctx, workspaceID, batch))

	candidateID := batch[0].ID
	result, err := engine.Merge(ctx, workspaceID, &models.MergeRequest{
		KeepID:      keep.ID,
		MergeID:     merge.ID,
		CandidateID: &candidateID,
	})
	require.NoError(t, err)
	assert.Equal(t, keep.ID, result.KeepID)

	t.Run("merged person is gone", func(t *testing.T) {
		_, err := peopleRepo.GetByID(ctx, workspaceID, merge.ID)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})

	t.Run("keep person carries the unioned data", func(t *testing.T) {
		got, err := peopleRepo.GetByID(ctx, workspaceID, keep.ID)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"company": "Acme", "city": "London"}, got.CustomData.GetValue())
		assert.ElementsMatch(t, []string{"gmail", "linkedin"}, got.Sources.GetValue())
	})

	t.Run("no duplicate link rows after merge", func(t *testing.T) {
		var total, shared int
		require.NoError(t, db.GetContext(ctx, &total,
			"SELECT COUNT(*) FROM company_links WHERE workspace_id = $1 AND person_id = $2", workspaceID, keep.ID))
		require.NoError(t, db.GetContext(ctx, &shared,
			"SELECT COUNT(*) FROM company_links WHERE workspace_id = $1 AND company_id = $2", workspaceID, sharedCompany))
		assert.Equal(t, 2, total)
		assert.Equal(t, 1, shared)
	})

	t.Run("referenced candidate is retired, stale pending cleared", func(t *testing.T) {
		var status string
		require.NoError(t, db.GetContext(ctx, &status,
			"SELECT status FROM duplicate_candidates WHERE id = $1", candidateID))
		assert.Equal(t, "merged", status)

		pending, err := candidateRepo.ListPending(ctx, workspaceID, 50)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("repeating the merge fails cleanly", func(t *testing.T) {
		_, err := engine.Merge(ctx, workspaceID, &models.MergeRequest{
			KeepID:  keep.ID,
			MergeID: merge.ID,
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))

		// The failed attempt rolled back without touching the keep person.
		got, err := peopleRepo.GetByID(ctx, workspaceID, keep.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", got.DisplayName)
	})
}
