// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"parley/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options controls how much data the seeder generates.
type Options struct {
	Users           int
	MessagesPerConv int
	// MaxDays is how far back generated timestamps may reach.
	MaxDays int
	// Password is assigned to every seeded user so demo logins work.
	Password string
}

// DefaultOptions are sensible sizes for a local development database.
func DefaultOptions() Options {
	return Options{
		Users:           25,
		MessagesPerConv: 40,
		MaxDays:         30,
		Password:        "password123",
	}
}

// Seeder populates the database with a believable social mesh: users,
// friendships, pending invitations, and conversations with message history
// and read receipts.
type Seeder struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:   db,
		opts: opts,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll truncates every seeded table. Order matters for FK constraints.
func (s *Seeder) ClearAll() error {
	tables := []string{
		"message_reads",
		"messages",
		"conversation_participants",
		"conversations",
		"friendships",
		"friend_invitations",
		"users",
	}
	for _, table := range tables {
		if err := s.db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	log.Println("Cleared existing data")
	return nil
}

// Run executes the full seeding pass.
func (s *Seeder) Run() error {
	users, err := s.seedUsers()
	if err != nil {
		return err
	}
	friendships, err := s.seedSocialMesh(users)
	if err != nil {
		return err
	}
	if err := s.seedConversations(users, friendships); err != nil {
		return err
	}
	log.Printf("Seeding complete: %d users, %d friendships", len(users), len(friendships))
	return nil
}

func (s *Seeder) seedUsers() ([]*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(s.opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing seed password: %w", err)
	}

	users := make([]*models.User, 0, s.opts.Users)
	seen := map[string]bool{}
	for i := 0; i < s.opts.Users; i++ {
		username := gofakeit.Username()
		for seen[username] {
			username = fmt.Sprintf("%s%d", gofakeit.Username(), s.rng.Intn(1000))
		}
		seen[username] = true

		lastSeen := s.pastTime()
		user := &models.User{
			Username: username,
			Email:    fmt.Sprintf("%s@%s", username, gofakeit.DomainName()),
			Password: string(hash),
			Status:   models.PresenceOffline,
			LastSeen: &lastSeen,
			Avatar:   fmt.Sprintf("https://picsum.photos/seed/%s/200/200", gofakeit.UUID()),
		}
		if err := s.db.Create(user).Error; err != nil {
			return nil, fmt.Errorf("creating user %s: %w", username, err)
		}
		users = append(users, user)
	}
	log.Printf("Created %d users (password %q)", len(users), s.opts.Password)
	return users, nil
}

// seedSocialMesh links roughly a third of all user pairs as friends and
// leaves a scattering of pending and resolved invitations behind, so the
// invitation list endpoints have content to show.
func (s *Seeder) seedSocialMesh(users []*models.User) ([]*models.Friendship, error) {
	var friendships []*models.Friendship
	pendingCount := 0

	for i := 0; i < len(users); i++ {
		for j := i + 1; j < len(users); j++ {
			roll := s.rng.Float64()
			sender, receiver := users[i], users[j]
			if s.rng.Intn(2) == 0 {
				sender, receiver = receiver, sender
			}

			switch {
			case roll < 0.30:
				inv := &models.FriendInvitation{
					SenderID:   sender.ID,
					ReceiverID: receiver.ID,
					Status:     models.InvitationStatusAccepted,
					Message:    gofakeit.HipsterSentence(4),
				}
				now := time.Now()
				inv.AcceptedAt = &now
				if err := s.db.Create(inv).Error; err != nil {
					return nil, fmt.Errorf("creating accepted invitation: %w", err)
				}
				f := &models.Friendship{UserAID: sender.ID, UserBID: receiver.ID}
				if err := s.db.Create(f).Error; err != nil {
					return nil, fmt.Errorf("creating friendship: %w", err)
				}
				friendships = append(friendships, f)
			case roll < 0.36:
				inv := &models.FriendInvitation{
					SenderID:   sender.ID,
					ReceiverID: receiver.ID,
					Status:     models.InvitationStatusPending,
					Message:    gofakeit.HipsterSentence(4),
				}
				if err := s.db.Create(inv).Error; err != nil {
					return nil, fmt.Errorf("creating pending invitation: %w", err)
				}
				pendingCount++
			case roll < 0.40:
				status := models.InvitationStatusRejected
				if s.rng.Intn(2) == 0 {
					status = models.InvitationStatusCancelled
				}
				inv := &models.FriendInvitation{
					SenderID:   sender.ID,
					ReceiverID: receiver.ID,
					Status:     status,
				}
				if status == models.InvitationStatusRejected {
					now := time.Now()
					inv.RejectedAt = &now
				}
				if err := s.db.Create(inv).Error; err != nil {
					return nil, fmt.Errorf("creating resolved invitation: %w", err)
				}
			}
		}
	}

	log.Printf("Created %d friendships, %d pending invitations", len(friendships), pendingCount)
	return friendships, nil
}

// seedConversations creates a direct conversation for most friend pairs plus
// a handful of group conversations, each with message history. Unread
// counters are derived from the generated read receipts so the numbers the
// API reports are internally consistent from the first request.
func (s *Seeder) seedConversations(users []*models.User, friendships []*models.Friendship) error {
	convCount := 0
	msgCount := 0

	for _, f := range friendships {
		if s.rng.Float64() > 0.8 {
			continue
		}
		n, err := s.createConversationWithHistory(models.ConversationDirect, []uint{f.UserAID, f.UserBID})
		if err != nil {
			return err
		}
		convCount++
		msgCount += n
	}

	// A few group conversations over random user clusters.
	groups := len(users) / 8
	for g := 0; g < groups; g++ {
		size := 3 + s.rng.Intn(4)
		memberIDs := s.randomUserIDs(users, size)
		n, err := s.createConversationWithHistory(models.ConversationGroup, memberIDs)
		if err != nil {
			return err
		}
		convCount++
		msgCount += n
	}

	log.Printf("Created %d conversations with %d messages", convCount, msgCount)
	return nil
}

func (s *Seeder) createConversationWithHistory(convType models.ConversationType, memberIDs []uint) (int, error) {
	conv := &models.Conversation{Type: convType, CreatedBy: memberIDs[0]}
	if err := s.db.Create(conv).Error; err != nil {
		return 0, fmt.Errorf("creating conversation: %w", err)
	}
	for _, id := range memberIDs {
		p := &models.ConversationParticipant{ConversationID: conv.ID, UserID: id}
		if err := s.db.Create(p).Error; err != nil {
			return 0, fmt.Errorf("creating participant: %w", err)
		}
	}

	total := 1 + s.rng.Intn(s.opts.MessagesPerConv)
	base := s.pastTime()
	var lastID uint
	messages := make([]*models.Message, 0, total)
	for m := 0; m < total; m++ {
		sender := memberIDs[s.rng.Intn(len(memberIDs))]
		msg := &models.Message{
			ConversationID: conv.ID,
			SenderID:       sender,
			Content:        gofakeit.HipsterSentence(3 + s.rng.Intn(10)),
			Type:           models.MessageTypeText,
			Status:         models.MessageStatusSent,
		}
		msg.CreatedAt = base.Add(time.Duration(m) * time.Duration(1+s.rng.Intn(50)) * time.Minute)
		if err := s.db.Create(msg).Error; err != nil {
			return 0, fmt.Errorf("creating message: %w", err)
		}
		messages = append(messages, msg)
		lastID = msg.ID
	}

	if err := s.db.Model(conv).Update("last_message_id", lastID).Error; err != nil {
		return 0, fmt.Errorf("setting last message: %w", err)
	}

	// Each participant has read a random prefix of the history. Everything
	// past their watermark from other senders counts toward unread.
	for _, id := range memberIDs {
		readUpTo := s.rng.Intn(total + 1)
		unread := 0
		var lastReadAt *time.Time
		for m, msg := range messages {
			if msg.SenderID == id {
				continue
			}
			if m < readUpTo {
				receipt := &models.MessageRead{MessageID: msg.ID, UserID: id, ReadAt: msg.CreatedAt}
				if err := s.db.Create(receipt).Error; err != nil {
					return 0, fmt.Errorf("creating read receipt: %w", err)
				}
				lastReadAt = &msg.CreatedAt
			} else {
				unread++
			}
		}
		err := s.db.Model(&models.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ?", conv.ID, id).
			Updates(map[string]interface{}{"unread_count": unread, "last_read_at": lastReadAt}).Error
		if err != nil {
			return 0, fmt.Errorf("setting unread counter: %w", err)
		}
	}

	return total, nil
}

func (s *Seeder) randomUserIDs(users []*models.User, n int) []uint {
	perm := s.rng.Perm(len(users))
	if n > len(users) {
		n = len(users)
	}
	ids := make([]uint, 0, n)
	for _, idx := range perm[:n] {
		ids = append(ids, users[idx].ID)
	}
	return ids
}

func (s *Seeder) pastTime() time.Time {
	maxDays := s.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	daysBack := s.rng.Intn(maxDays)
	return time.Now().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(s.rng.Intn(24))*time.Hour)
}
