package item

import (
	"context"
	"testing"
	"time"

	"lostfound_backend/internal/common"
	"lostfound_backend/internal/platform/database/dbtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type RepositoryTestSuite struct {
	suite.Suite
	repo Repository
	ctx  context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	s.repo = NewGORMRepository(dbtest.Open(s.T(), &Item{}))
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) newItem(status Status, reporter uuid.UUID) *Item {
	it := &Item{
		Name:         "Blue umbrella",
		Category:     "Accessories",
		CategorySlug: "accessories",
		Date:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		ReportedBy:   reporter,
		Status:       status,
	}
	s.Require().NoError(s.repo.Create(s.ctx, it))
	return it
}

func (s *RepositoryTestSuite) TestClaimIfFound_OnlyFromFound() {
	it := s.newItem(StatusFound, uuid.New())
	claimant := uuid.New()

	ok, err := s.repo.ClaimIfFound(s.ctx, it.ID, claimant)
	s.Require().NoError(err)
	s.True(ok)

	got, err := s.repo.FindByID(s.ctx, it.ID)
	s.Require().NoError(err)
	s.Equal(StatusClaimed, got.Status)
	s.Require().NotNil(got.ClaimedBy)
	s.Equal(claimant, *got.ClaimedBy)

	ok, err = s.repo.ClaimIfFound(s.ctx, it.ID, uuid.New())
	s.Require().NoError(err)
	s.False(ok, "second claim must not overwrite")

	got, _ = s.repo.FindByID(s.ctx, it.ID)
	s.Equal(claimant, *got.ClaimedBy)
}

func (s *RepositoryTestSuite) TestSetStatus_ClearsClaimant() {
	it := s.newItem(StatusFound, uuid.New())
	claimant := uuid.New()
	_, err := s.repo.ClaimIfFound(s.ctx, it.ID, claimant)
	s.Require().NoError(err)

	s.Require().NoError(s.repo.SetStatus(s.ctx, it.ID, StatusReturned, nil, &claimant))
	got, _ := s.repo.FindByID(s.ctx, it.ID)
	s.Equal(StatusReturned, got.Status)
	s.Nil(got.ClaimedBy)
	s.Require().NotNil(got.ReturnedTo)
	s.Equal(claimant, *got.ReturnedTo)

	s.ErrorIs(s.repo.SetStatus(s.ctx, uuid.New(), StatusFound, nil, nil), common.ErrNotFound)
}

func (s *RepositoryTestSuite) TestListFilters() {
	reporter := uuid.New()
	s.newItem(StatusLost, reporter)
	found := s.newItem(StatusFound, uuid.New())
	s.newItem(StatusReturned, reporter)
	hidden := s.newItem(StatusFound, reporter)
	s.Require().NoError(s.repo.SoftDelete(s.ctx, hidden.ID))

	items, total, err := s.repo.List(s.ctx, ListFilter{Statuses: []Status{StatusLost, StatusFound}, Page: 1, PageSize: 10})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Len(items, 2)

	items, total, err = s.repo.List(s.ctx, ListFilter{ReporterID: &reporter, Page: 1, PageSize: 10})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	for _, it := range items {
		s.Equal(reporter, it.ReportedBy)
	}

	_, total, err = s.repo.List(s.ctx, ListFilter{IncludeDeleted: true, Page: 1, PageSize: 10})
	s.Require().NoError(err)
	s.Equal(int64(4), total)

	_, total, err = s.repo.List(s.ctx, ListFilter{CategorySlug: "keys", Page: 1, PageSize: 10})
	s.Require().NoError(err)
	s.Zero(total)

	counts, err := s.repo.CountByStatus(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), counts[StatusFound])
	s.Equal(int64(1), counts[StatusLost])

	byIDs, err := s.repo.FindByIDs(s.ctx, []uuid.UUID{found.ID, uuid.New()})
	s.Require().NoError(err)
	s.Len(byIDs, 1)
}

func (s *RepositoryTestSuite) TestUpdateDetailsLeavesStatusAlone() {
	it := s.newItem(StatusFound, uuid.New())
	_, err := s.repo.ClaimIfFound(s.ctx, it.ID, uuid.New())
	s.Require().NoError(err)

	// it still holds the stale pre-claim status.
	it.Name = "Red umbrella"
	s.Require().NoError(s.repo.UpdateDetails(s.ctx, it))

	got, _ := s.repo.FindByID(s.ctx, it.ID)
	s.Equal("Red umbrella", got.Name)
	s.Equal(StatusClaimed, got.Status)
	s.NotNil(got.ClaimedBy)
}

func (s *RepositoryTestSuite) TestDeleteAndBatches() {
	a := s.newItem(StatusFound, uuid.New())
	s.newItem(StatusLost, uuid.New())
	s.newItem(StatusLost, uuid.New())

	s.Require().NoError(s.repo.Delete(s.ctx, a.ID))
	s.ErrorIs(s.repo.Delete(s.ctx, a.ID), common.ErrNotFound)
	_, err := s.repo.FindByIDForUpdate(s.ctx, a.ID)
	s.ErrorIs(err, common.ErrNotFound)

	seen := 0
	batches := 0
	s.Require().NoError(s.repo.FindInBatches(s.ctx, 1, func(batch []Item) error {
		batches++
		seen += len(batch)
		return nil
	}))
	s.Equal(2, seen)
	s.Equal(2, batches)
}

func TestItemRepository(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
