package service

import (
	"context"

	"parley/internal/models"
)

type invitationRepoStub struct {
	createFn            func(context.Context, *models.FriendInvitation) error
	getByIDFn           func(context.Context, uint) (*models.FriendInvitation, error)
	getPendingBetweenFn func(context.Context, uint, uint) (*models.FriendInvitation, error)
	getLatestBetweenFn  func(context.Context, uint, uint) (*models.FriendInvitation, error)
	listIncomingFn      func(context.Context, uint) ([]models.FriendInvitation, error)
	listOutgoingFn      func(context.Context, uint) ([]models.FriendInvitation, error)
	resolveFn           func(context.Context, uint, models.InvitationStatus) (bool, error)
	acceptFn            func(context.Context, *models.FriendInvitation) (*models.Friendship, error)
}

func (s *invitationRepoStub) Create(ctx context.Context, inv *models.FriendInvitation) error {
	return s.createFn(ctx, inv)
}
func (s *invitationRepoStub) GetByID(ctx context.Context, id uint) (*models.FriendInvitation, error) {
	return s.getByIDFn(ctx, id)
}
func (s *invitationRepoStub) GetPendingBetween(ctx context.Context, senderID, receiverID uint) (*models.FriendInvitation, error) {
	return s.getPendingBetweenFn(ctx, senderID, receiverID)
}
func (s *invitationRepoStub) GetLatestBetween(ctx context.Context, userID1, userID2 uint) (*models.FriendInvitation, error) {
	return s.getLatestBetweenFn(ctx, userID1, userID2)
}
func (s *invitationRepoStub) ListIncoming(ctx context.Context, userID uint) ([]models.FriendInvitation, error) {
	return s.listIncomingFn(ctx, userID)
}
func (s *invitationRepoStub) ListOutgoing(ctx context.Context, userID uint) ([]models.FriendInvitation, error) {
	return s.listOutgoingFn(ctx, userID)
}
func (s *invitationRepoStub) Resolve(ctx context.Context, id uint, status models.InvitationStatus) (bool, error) {
	return s.resolveFn(ctx, id, status)
}
func (s *invitationRepoStub) Accept(ctx context.Context, inv *models.FriendInvitation) (*models.Friendship, error) {
	return s.acceptFn(ctx, inv)
}

func noopInvitationRepo() *invitationRepoStub {
	return &invitationRepoStub{
		createFn: func(context.Context, *models.FriendInvitation) error { return nil },
		getByIDFn: func(context.Context, uint) (*models.FriendInvitation, error) {
			return &models.FriendInvitation{}, nil
		},
		getPendingBetweenFn: func(context.Context, uint, uint) (*models.FriendInvitation, error) { return nil, nil },
		getLatestBetweenFn:  func(context.Context, uint, uint) (*models.FriendInvitation, error) { return nil, nil },
		listIncomingFn:      func(context.Context, uint) ([]models.FriendInvitation, error) { return nil, nil },
		listOutgoingFn:      func(context.Context, uint) ([]models.FriendInvitation, error) { return nil, nil },
		resolveFn:           func(context.Context, uint, models.InvitationStatus) (bool, error) { return true, nil },
		acceptFn: func(context.Context, *models.FriendInvitation) (*models.Friendship, error) {
			return &models.Friendship{}, nil
		},
	}
}

type friendshipRepoStub struct {
	createFn               func(context.Context, *models.Friendship) error
	getBetweenFn           func(context.Context, uint, uint) (*models.Friendship, error)
	listFriendsFn          func(context.Context, uint) ([]models.User, error)
	areFriendsFn           func(context.Context, uint, uint) (bool, error)
	removeFn               func(context.Context, uint, uint) error
	touchLastInteractionFn func(context.Context, uint, uint) error
}

func (s *friendshipRepoStub) Create(ctx context.Context, f *models.Friendship) error {
	return s.createFn(ctx, f)
}
func (s *friendshipRepoStub) GetBetween(ctx context.Context, userID1, userID2 uint) (*models.Friendship, error) {
	return s.getBetweenFn(ctx, userID1, userID2)
}
func (s *friendshipRepoStub) ListFriends(ctx context.Context, userID uint) ([]models.User, error) {
	return s.listFriendsFn(ctx, userID)
}
func (s *friendshipRepoStub) AreFriends(ctx context.Context, userID1, userID2 uint) (bool, error) {
	return s.areFriendsFn(ctx, userID1, userID2)
}
func (s *friendshipRepoStub) Remove(ctx context.Context, userID1, userID2 uint) error {
	return s.removeFn(ctx, userID1, userID2)
}
func (s *friendshipRepoStub) TouchLastInteraction(ctx context.Context, userID1, userID2 uint) error {
	return s.touchLastInteractionFn(ctx, userID1, userID2)
}

func noopFriendshipRepo() *friendshipRepoStub {
	return &friendshipRepoStub{
		createFn:               func(context.Context, *models.Friendship) error { return nil },
		getBetweenFn:           func(context.Context, uint, uint) (*models.Friendship, error) { return nil, nil },
		listFriendsFn:          func(context.Context, uint) ([]models.User, error) { return nil, nil },
		areFriendsFn:           func(context.Context, uint, uint) (bool, error) { return false, nil },
		removeFn:               func(context.Context, uint, uint) error { return nil },
		touchLastInteractionFn: func(context.Context, uint, uint) error { return nil },
	}
}

type userRepoStub struct {
	createFn         func(context.Context, *models.User) error
	getByIDFn        func(context.Context, uint) (*models.User, error)
	getByEmailFn     func(context.Context, string) (*models.User, error)
	getByUsernameFn  func(context.Context, string) (*models.User, error)
	searchFn         func(context.Context, string, int) ([]models.User, error)
	updatePresenceFn func(context.Context, uint, models.PresenceStatus) error
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	return s.searchFn(ctx, query, limit)
}
func (s *userRepoStub) UpdatePresence(ctx context.Context, userID uint, status models.PresenceStatus) error {
	return s.updatePresenceFn(ctx, userID, status)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		createFn:         func(context.Context, *models.User) error { return nil },
		getByIDFn:        func(context.Context, uint) (*models.User, error) { return &models.User{}, nil },
		getByEmailFn:     func(context.Context, string) (*models.User, error) { return nil, nil },
		getByUsernameFn:  func(context.Context, string) (*models.User, error) { return nil, nil },
		searchFn:         func(context.Context, string, int) ([]models.User, error) { return nil, nil },
		updatePresenceFn: func(context.Context, uint, models.PresenceStatus) error { return nil },
	}
}

type conversationRepoStub struct {
	createDirectFn     func(context.Context, uint, uint) (*models.Conversation, error)
	createGroupFn      func(context.Context, uint, []uint) (*models.Conversation, error)
	getByIDFn          func(context.Context, uint) (*models.Conversation, error)
	getDirectBetweenFn func(context.Context, uint, uint) (*models.Conversation, error)
	listForUserFn      func(context.Context, uint, int, int) ([]models.Conversation, error)
	getParticipantFn   func(context.Context, uint, uint) (*models.ConversationParticipant, error)
	participantIDsFn   func(context.Context, uint) ([]uint, error)
	resetUnreadFn      func(context.Context, uint, uint) error
}

func (s *conversationRepoStub) CreateDirect(ctx context.Context, creatorID, otherID uint) (*models.Conversation, error) {
	return s.createDirectFn(ctx, creatorID, otherID)
}
func (s *conversationRepoStub) CreateGroup(ctx context.Context, creatorID uint, memberIDs []uint) (*models.Conversation, error) {
	return s.createGroupFn(ctx, creatorID, memberIDs)
}
func (s *conversationRepoStub) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	return s.getByIDFn(ctx, id)
}
func (s *conversationRepoStub) GetDirectBetween(ctx context.Context, userID1, userID2 uint) (*models.Conversation, error) {
	return s.getDirectBetweenFn(ctx, userID1, userID2)
}
func (s *conversationRepoStub) ListForUser(ctx context.Context, userID uint, page, limit int) ([]models.Conversation, error) {
	return s.listForUserFn(ctx, userID, page, limit)
}
func (s *conversationRepoStub) GetParticipant(ctx context.Context, conversationID, userID uint) (*models.ConversationParticipant, error) {
	return s.getParticipantFn(ctx, conversationID, userID)
}
func (s *conversationRepoStub) ParticipantIDs(ctx context.Context, conversationID uint) ([]uint, error) {
	return s.participantIDsFn(ctx, conversationID)
}
func (s *conversationRepoStub) ResetUnread(ctx context.Context, conversationID, userID uint) error {
	return s.resetUnreadFn(ctx, conversationID, userID)
}

func noopConversationRepo() *conversationRepoStub {
	return &conversationRepoStub{
		createDirectFn: func(context.Context, uint, uint) (*models.Conversation, error) {
			return &models.Conversation{}, nil
		},
		createGroupFn: func(context.Context, uint, []uint) (*models.Conversation, error) {
			return &models.Conversation{}, nil
		},
		getByIDFn: func(context.Context, uint) (*models.Conversation, error) {
			return &models.Conversation{}, nil
		},
		getDirectBetweenFn: func(context.Context, uint, uint) (*models.Conversation, error) { return nil, nil },
		listForUserFn:      func(context.Context, uint, int, int) ([]models.Conversation, error) { return nil, nil },
		getParticipantFn: func(context.Context, uint, uint) (*models.ConversationParticipant, error) {
			return &models.ConversationParticipant{}, nil
		},
		participantIDsFn: func(context.Context, uint) ([]uint, error) { return nil, nil },
		resetUnreadFn:    func(context.Context, uint, uint) error { return nil },
	}
}

type messageRepoStub struct {
	sendFn           func(context.Context, *models.Message) error
	getByIDFn        func(context.Context, uint) (*models.Message, error)
	listFn           func(context.Context, uint, int, int) ([]models.Message, error)
	markReadUpToFn   func(context.Context, uint, uint, uint) ([]uint, error)
	editFn           func(context.Context, uint, string) error
	deleteFn         func(context.Context, uint) error
	countUnreadFn    func(context.Context, uint, uint) (int64, error)
	setUnreadFn      func(context.Context, uint, uint, int) error
}

func (s *messageRepoStub) Send(ctx context.Context, message *models.Message) error {
	return s.sendFn(ctx, message)
}
func (s *messageRepoStub) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	return s.getByIDFn(ctx, id)
}
func (s *messageRepoStub) ListByConversation(ctx context.Context, conversationID uint, page, limit int) ([]models.Message, error) {
	return s.listFn(ctx, conversationID, page, limit)
}
func (s *messageRepoStub) MarkReadUpTo(ctx context.Context, conversationID, userID, upToMessageID uint) ([]uint, error) {
	return s.markReadUpToFn(ctx, conversationID, userID, upToMessageID)
}
func (s *messageRepoStub) Edit(ctx context.Context, messageID uint, content string) error {
	return s.editFn(ctx, messageID, content)
}
func (s *messageRepoStub) Delete(ctx context.Context, messageID uint) error {
	return s.deleteFn(ctx, messageID)
}
func (s *messageRepoStub) CountUnread(ctx context.Context, conversationID, userID uint) (int64, error) {
	return s.countUnreadFn(ctx, conversationID, userID)
}
func (s *messageRepoStub) SetUnread(ctx context.Context, conversationID, userID uint, count int) error {
	return s.setUnreadFn(ctx, conversationID, userID, count)
}

func noopMessageRepo() *messageRepoStub {
	return &messageRepoStub{
		sendFn:         func(context.Context, *models.Message) error { return nil },
		getByIDFn:      func(context.Context, uint) (*models.Message, error) { return &models.Message{}, nil },
		listFn:         func(context.Context, uint, int, int) ([]models.Message, error) { return nil, nil },
		markReadUpToFn: func(context.Context, uint, uint, uint) ([]uint, error) { return nil, nil },
		editFn:         func(context.Context, uint, string) error { return nil },
		deleteFn:       func(context.Context, uint) error { return nil },
		countUnreadFn:  func(context.Context, uint, uint) (int64, error) { return 0, nil },
		setUnreadFn:    func(context.Context, uint, uint, int) error { return nil },
	}
}
