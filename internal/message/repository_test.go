package message

import (
	"context"
	"testing"
	"time"

	"lostfound_backend/internal/common"
	"lostfound_backend/internal/platform/database/dbtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type MessageRepositoryTestSuite struct {
	suite.Suite
	repo     Repository
	ctx      context.Context
	base     time.Time
	item     uuid.UUID
	reporter uuid.UUID
}

func (s *MessageRepositoryTestSuite) SetupTest() {
	db := dbtest.Open(s.T(), &Message{})
	s.repo = NewGORMRepository(db)
	s.ctx = context.Background()
	s.base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.item = uuid.New()
	s.reporter = uuid.New()
}

// add stores a message created offset minutes after the fixture base time.
func (s *MessageRepositoryTestSuite) add(m Message, offset int) *Message {
	m.CreatedAt = s.base.Add(time.Duration(offset) * time.Minute)
	m.UpdatedAt = m.CreatedAt
	if m.Content == "" {
		m.Content = "text"
	}
	s.Require().NoError(s.repo.Create(s.ctx, &m))
	return &m
}

func (s *MessageRepositoryTestSuite) proof(sender, receiver uuid.UUID, offset int) *Message {
	return s.add(Message{SenderID: sender, ReceiverID: receiver, ItemID: &s.item, IsClaimProof: true}, offset)
}

func (s *MessageRepositoryTestSuite) TestLatestProof_PicksNewestLiveProofToReporter() {
	first, second := uuid.New(), uuid.New()
	admin := uuid.New()
	s.proof(first, s.reporter, 1)
	s.proof(second, s.reporter, 2)
	// Administrator copies of a later submission must not win on their own.
	s.proof(uuid.New(), admin, 3)
	// The reporter's own photo never counts.
	url := "/uploads/messages/x.png"
	s.add(Message{SenderID: s.reporter, ReceiverID: second, ItemID: &s.item, ImageURL: &url}, 4)

	latest, err := s.repo.LatestProof(s.ctx, s.item, s.reporter)
	s.Require().NoError(err)
	s.Equal(second, latest.SenderID)

	proofs, err := s.repo.Proofs(s.ctx, s.item, s.reporter)
	s.Require().NoError(err)
	s.Len(proofs, 2)
}

func (s *MessageRepositoryTestSuite) TestLatestProof_ImageMessageCountsAndWithdrawnOrReportedDoNot() {
	claimant, withdrawn, flagged := uuid.New(), uuid.New(), uuid.New()
	url := "/uploads/messages/a.png"
	s.add(Message{SenderID: claimant, ReceiverID: s.reporter, ItemID: &s.item, ImageURL: &url}, 1)
	w := s.proof(withdrawn, s.reporter, 2)
	s.Require().NoError(s.repo.HideForSender(s.ctx, w.ID))
	f := s.proof(flagged, s.reporter, 3)
	ok, err := s.repo.MarkReported(s.ctx, f.ID, s.reporter, nil)
	s.Require().NoError(err)
	s.True(ok)

	latest, err := s.repo.LatestProof(s.ctx, s.item, s.reporter)
	s.Require().NoError(err)
	s.Equal(claimant, latest.SenderID)

	has, err := s.repo.HasProofFrom(s.ctx, s.item, s.reporter, withdrawn)
	s.Require().NoError(err)
	s.False(has)
	has, err = s.repo.HasProofFrom(s.ctx, s.item, s.reporter, claimant)
	s.Require().NoError(err)
	s.True(has)
}

func (s *MessageRepositoryTestSuite) TestLatestProof_NoneIsNotFound() {
	s.add(Message{SenderID: uuid.New(), ReceiverID: s.reporter, ItemID: &s.item}, 1)
	_, err := s.repo.LatestProof(s.ctx, s.item, s.reporter)
	s.ErrorIs(err, common.ErrNotFound)
}

func (s *MessageRepositoryTestSuite) TestMarkReported_OnlyOnce() {
	m := s.add(Message{SenderID: uuid.New(), ReceiverID: uuid.New()}, 1)
	first, err := s.repo.MarkReported(s.ctx, m.ID, m.ReceiverID, nil)
	s.Require().NoError(err)
	second, err := s.repo.MarkReported(s.ctx, m.ID, m.ReceiverID, nil)
	s.Require().NoError(err)
	s.True(first)
	s.False(second)
}

func (s *MessageRepositoryTestSuite) TestPurgeSent_ReturnsDistinctImageKeys() {
	sender := uuid.New()
	key := "messages/shared.png"
	s.add(Message{SenderID: sender, ReceiverID: uuid.New(), ImageKey: &key}, 1)
	s.add(Message{SenderID: sender, ReceiverID: uuid.New(), ImageKey: &key}, 2)
	s.add(Message{SenderID: sender, ReceiverID: uuid.New()}, 3)

	keys, n, err := s.repo.PurgeSent(s.ctx, sender)
	s.Require().NoError(err)
	s.EqualValues(3, n)
	s.Equal([]string{key}, keys)

	inUse, err := s.repo.ImageInUse(s.ctx, key)
	s.Require().NoError(err)
	s.False(inUse)
}

func (s *MessageRepositoryTestSuite) TestConversation_OrderAndVisibility() {
	a, b := uuid.New(), uuid.New()
	s.add(Message{SenderID: b, ReceiverID: a, Content: "two"}, 2)
	s.add(Message{SenderID: a, ReceiverID: b, Content: "one"}, 1)
	hidden := s.add(Message{SenderID: a, ReceiverID: b, Content: "three"}, 3)
	s.add(Message{SenderID: a, ReceiverID: uuid.New(), Content: "elsewhere"}, 4)
	s.Require().NoError(s.repo.HideForReceiver(s.ctx, hidden.ID))

	forA, err := s.repo.Conversation(s.ctx, a, b)
	s.Require().NoError(err)
	s.Require().Len(forA, 3)
	s.Equal("one", forA[0].Content)
	s.Equal("three", forA[2].Content)

	forB, err := s.repo.Conversation(s.ctx, b, a)
	s.Require().NoError(err)
	s.Len(forB, 2)

	n, err := s.repo.MarkConversationRead(s.ctx, b, a)
	s.Require().NoError(err)
	s.EqualValues(1, n)
}

func (s *MessageRepositoryTestSuite) TestMarkConversationRead_SkipsHiddenAndReported() {
	a, b := uuid.New(), uuid.New()
	live := s.add(Message{SenderID: a, ReceiverID: b, Content: "live"}, 1)
	hidden := s.add(Message{SenderID: a, ReceiverID: b, Content: "hidden"}, 2)
	flagged := s.add(Message{SenderID: a, ReceiverID: b, Content: "flagged"}, 3)
	s.Require().NoError(s.repo.HideForReceiver(s.ctx, hidden.ID))
	ok, err := s.repo.MarkReported(s.ctx, flagged.ID, b, nil)
	s.Require().NoError(err)
	s.True(ok)

	n, err := s.repo.MarkConversationRead(s.ctx, b, a)
	s.Require().NoError(err)
	s.EqualValues(1, n)

	for id, read := range map[uuid.UUID]bool{live.ID: true, hidden.ID: false, flagged.ID: false} {
		m, err := s.repo.FindByID(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(read, m.IsRead)
	}
}

func TestMessageRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(MessageRepositoryTestSuite))
}
