package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bma-crm/commhub/internal/models"
	"github.com/bma-crm/commhub/internal/repository"
)

func TestCustomerRepository_TagFilter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := repository.NewRepository(db)

	insertTestCustomer(t, repo, "Somchai", "66812345678", "vip", "bangkok")
	insertTestCustomer(t, repo, "Malee", "66887654321", "vip")
	insertTestCustomer(t, repo, "Niran", "66811111111", "prospect")

	vip, err := repo.Customer().List(repository.CustomerFilter{Tag: "vip", Limit: 50})
	require.NoError(t, err)
	assert.Len(t, vip, 2)

	counts, err := repo.Customer().TagCounts()
	require.NoError(t, err)

	byTag := map[string]int{}
	for _, c := range counts {
		byTag[c.Tag] = c.Count
	}
	assert.Equal(t, 2, byTag["vip"])
	assert.Equal(t, 1, byTag["bangkok"])
	assert.Equal(t, 1, byTag["prospect"])
}

func TestCustomerRepository_Segment(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := repository.NewRepository(db)

	insertTestCustomer(t, repo, "Somchai", "66812345678", "vip")
	insertTestCustomer(t, repo, "Malee", "66887654321", "vip")

	optedOut := insertTestCustomer(t, repo, "Niran", "66811111111", "vip")
	optedOut.OptOut = true
	require.NoError(t, repo.Customer().Update(optedOut))

	inactive := insertTestCustomer(t, repo, "Ploy", "66822222222", "vip")
	inactive.IsActive = false
	require.NoError(t, repo.Customer().Update(inactive))

	filter := models.SegmentFilter{Tags: []string{"vip"}, HasWhatsApp: true}

	count, err := repo.Customer().CountBySegment(filter)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	recipients, err := repo.Customer().ListBySegment(filter, 0, 0)
	require.NoError(t, err)
	require.Len(t, recipients, 2)
	for _, c := range recipients {
		assert.True(t, c.IsActive)
		assert.False(t, c.OptOut)
		assert.True(t, c.WhatsAppID.Valid)
	}
}

func TestCustomerRepository_GetByWhatsAppID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := repository.NewRepository(db)

	customer := insertTestCustomer(t, repo, "Somchai", "66812345678")

	got, err := repo.Customer().GetByWhatsAppID("66812345678")
	require.NoError(t, err)
	assert.Equal(t, customer.ID, got.ID)

	_, err = repo.Customer().GetByWhatsAppID("0000000000")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCustomerRepository_ExistsByPhoneOrEmail(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := repository.NewRepository(db)

	customer := insertTestCustomer(t, repo, "Somchai", "66812345678")
	customer.Email = nullString("somchai@example.com")
	require.NoError(t, repo.Customer().Update(customer))

	exists, err := repo.Customer().ExistsByPhoneOrEmail("66812345678", "")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Customer().ExistsByPhoneOrEmail("66899999999", "somchai@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Customer().ExistsByPhoneOrEmail("66899999999", "")
	require.NoError(t, err)
	assert.False(t, exists)
}
