package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
)

// MockMessageRepository is an in-memory conversation store for testing.
// CreatePair is all-or-nothing like the real transaction.
type MockMessageRepository struct {
	mu        sync.Mutex
	messages  []*models.Message
	summaries map[[2]uint]models.ConversationSummary
	nextID    uint
	failWith  error
	failTimes int
	attempts  int

	// beforeCreatePair runs inside the lock ahead of the insert, so a
	// test can land a concurrent resend between the service's dedup
	// pre-check and the write.
	beforeCreatePair func()
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{
		summaries: make(map[[2]uint]models.ConversationSummary),
		nextID:    1,
	}
}

func (m *MockMessageRepository) CreatePair(ctx context.Context, senderCopy, recipientCopy *models.Message, summaries []models.ConversationSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts++
	if m.beforeCreatePair != nil {
		m.beforeCreatePair()
		m.beforeCreatePair = nil
	}
	if m.failWith != nil {
		if m.failTimes == 0 || m.attempts <= m.failTimes {
			return m.failWith
		}
	}

	for _, msg := range m.messages {
		if msg.OwnerID == senderCopy.OwnerID && msg.ClientID == senderCopy.ClientID {
			return &models.WriteError{Op: "message.create", Err: models.ErrDuplicate}
		}
	}

	for _, row := range []*models.Message{senderCopy, recipientCopy} {
		row.ID = m.nextID
		m.nextID++
		m.messages = append(m.messages, row)
	}
	for _, s := range summaries {
		m.summaries[[2]uint{s.OwnerID, s.PeerID}] = s
	}
	return nil
}

func (m *MockMessageRepository) FindByClientID(ctx context.Context, ownerID uint, clientID string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.OwnerID == ownerID && msg.ClientID == clientID {
			return msg, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MockMessageRepository) FindThread(ctx context.Context, ownerID, peerID uint, cursor uint, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.Message
	for _, msg := range m.messages {
		if msg.OwnerID != ownerID || msg.PeerID != peerID {
			continue
		}
		if cursor > 0 && msg.ID >= cursor {
			continue
		}
		result = append(result, *msg)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SentAt.Before(result[j].SentAt) })
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (m *MockMessageRepository) HasThread(ctx context.Context, ownerID, peerID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.OwnerID == ownerID && msg.PeerID == peerID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockMessageRepository) MarkThreadRead(ctx context.Context, ownerID, peerID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var cleared int64
	now := time.Now().UTC()
	for _, msg := range m.messages {
		if msg.OwnerID == ownerID && msg.PeerID == peerID && msg.SenderID == peerID && !msg.IsRead {
			msg.IsRead = true
			msg.ReadAt = &now
			cleared++
		}
	}
	return cleared, nil
}

func (m *MockMessageRepository) MarkRead(ctx context.Context, ownerID, peerID uint, messageIDs []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]bool, len(messageIDs))
	for _, id := range messageIDs {
		ids[id] = true
	}
	var cleared int64
	now := time.Now().UTC()
	for _, msg := range m.messages {
		if msg.OwnerID == ownerID && msg.PeerID == peerID && ids[msg.MessageID] && !msg.IsRead {
			msg.IsRead = true
			msg.ReadAt = &now
			cleared++
		}
	}
	return cleared, nil
}

func (m *MockMessageRepository) CountUnread(ctx context.Context, ownerID, peerID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countUnreadLocked(ownerID, peerID), nil
}

func (m *MockMessageRepository) countUnreadLocked(ownerID, peerID uint) int64 {
	var count int64
	for _, msg := range m.messages {
		if msg.OwnerID == ownerID && msg.PeerID == peerID && msg.SenderID == peerID && !msg.IsRead {
			count++
		}
	}
	return count
}

func (m *MockMessageRepository) DeleteThread(ctx context.Context, ownerID, peerID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.OwnerID == ownerID && msg.PeerID == peerID {
			continue
		}
		kept = append(kept, msg)
	}
	m.messages = kept
	delete(m.summaries, [2]uint{ownerID, peerID})
	return nil
}

func (m *MockMessageRepository) ListSummaries(ctx context.Context, ownerID uint, limit int) ([]models.ConversationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.ConversationSummary
	for key, s := range m.summaries {
		if key[0] != ownerID {
			continue
		}
		s.UnreadCount = m.countUnreadLocked(s.OwnerID, s.PeerID)
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].LastSentAt.After(result[j].LastSentAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockMessageRepository) GetSummary(ctx context.Context, ownerID, peerID uint) (*models.ConversationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.summaries[[2]uint{ownerID, peerID}]; ok {
		s.UnreadCount = m.countUnreadLocked(ownerID, peerID)
		return &s, nil
	}
	return nil, models.ErrNotFound
}

// MockUserRepository is an in-memory user store for testing.
type MockUserRepository struct {
	mu        sync.Mutex
	users     map[uint]*models.User
	favorites map[uint]map[string]bool
	nextID    uint
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:     make(map[uint]*models.User),
		favorites: make(map[uint]map[string]bool),
		nextID:    1,
	}
}

func (m *MockUserRepository) Create(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == 0 {
		user.ID = m.nextID
		m.nextID++
	} else if user.ID >= m.nextID {
		m.nextID = user.ID + 1
	}
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) FindByEmail(email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) FindByUsername(username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) FindByID(id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Update(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) UpdateOnlineStatus(userID uint, isOnline bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.IsOnline = isOnline
	}
	return nil
}

func (m *MockUserRepository) SearchUsers(query string, limit int) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.User
	for _, u := range m.users {
		if len(result) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(u.Username), query) {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *MockUserRepository) AddFavoritePlant(ctx context.Context, userID uint, plantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.favorites[userID] == nil {
		m.favorites[userID] = make(map[string]bool)
	}
	m.favorites[userID][plantID] = true
	return nil
}

func (m *MockUserRepository) RemoveFavoritePlant(ctx context.Context, userID uint, plantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.favorites[userID], plantID)
	return nil
}

func (m *MockUserRepository) ListFavoritePlants(ctx context.Context, userID uint) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []string
	for id := range m.favorites[userID] {
		result = append(result, id)
	}
	sort.Strings(result)
	return result, nil
}

// MockReplyRepository is an in-memory reply store for testing.
type MockReplyRepository struct {
	mu      sync.Mutex
	replies map[uint]*models.Reply
	nextID  uint
}

func NewMockReplyRepository() *MockReplyRepository {
	return &MockReplyRepository{
		replies: make(map[uint]*models.Reply),
		nextID:  1,
	}
}

func (m *MockReplyRepository) Create(ctx context.Context, reply *models.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reply.ID = m.nextID
	m.nextID++
	reply.CreatedAt = time.Now().UTC()
	m.replies[reply.ID] = reply
	return nil
}

func (m *MockReplyRepository) FindByID(ctx context.Context, id uint) (*models.Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.replies[id]; ok {
		return r, nil
	}
	return nil, models.ErrNotFound
}

func (m *MockReplyRepository) FindByPost(ctx context.Context, postID uint, limit int) ([]models.Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.Reply
	for _, r := range m.replies {
		if r.PostID == postID {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockReplyRepository) Delete(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.replies, id)
	return nil
}

func (m *MockReplyRepository) countForPost(postID uint) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, r := range m.replies {
		if r.PostID == postID {
			count++
		}
	}
	return count
}

func (m *MockReplyRepository) deleteForPost(postID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.replies {
		if r.PostID == postID {
			delete(m.replies, id)
		}
	}
}

// MockPostRepository is an in-memory post store for testing. Reply
// counts come from the attached reply repository, mirroring how the
// real store derives them.
type MockPostRepository struct {
	mu            sync.Mutex
	posts         map[uint]*models.Post
	likes         map[[2]uint]bool
	replies       *MockReplyRepository
	nextID        uint
	findFeedCalls int
}

func NewMockPostRepository(replies *MockReplyRepository) *MockPostRepository {
	return &MockPostRepository{
		posts:   make(map[uint]*models.Post),
		likes:   make(map[[2]uint]bool),
		replies: replies,
		nextID:  1,
	}
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	post.ID = m.nextID
	m.nextID++
	post.CreatedAt = time.Now().UTC()
	m.posts[post.ID] = post
	return nil
}

func (m *MockPostRepository) FindByID(ctx context.Context, id uint) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.posts[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, models.ErrNotFound
}

func (m *MockPostRepository) FindFeed(ctx context.Context, communityID uint, cursor uint, limit int) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findFeedCalls++
	var result []models.Post
	for _, p := range m.posts {
		if p.CommunityID != communityID {
			continue
		}
		if cursor > 0 && p.ID >= cursor {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockPostRepository) Hydrate(ctx context.Context, posts []models.Post, viewerID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range posts {
		posts[i].LikeCount = m.countLikesLocked(posts[i].ID)
		posts[i].ReplyCount = m.replies.countForPost(posts[i].ID)
		if viewerID != 0 {
			posts[i].Liked = m.likes[[2]uint{posts[i].ID, viewerID}]
		}
	}
	return nil
}

func (m *MockPostRepository) Search(ctx context.Context, communityID uint, query string, limit int) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	query = strings.ToLower(query)
	var result []models.Post
	for _, p := range m.posts {
		if p.CommunityID != communityID {
			continue
		}
		if strings.Contains(strings.ToLower(p.Preview), query) {
			result = append(result, *p)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockPostRepository) DeleteCascade(ctx context.Context, postID uint) error {
	m.mu.Lock()
	delete(m.posts, postID)
	for key := range m.likes {
		if key[0] == postID {
			delete(m.likes, key)
		}
	}
	m.mu.Unlock()
	m.replies.deleteForPost(postID)
	return nil
}

func (m *MockPostRepository) AddLike(ctx context.Context, postID, userID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]uint{postID, userID}
	if m.likes[key] {
		return false, nil
	}
	m.likes[key] = true
	return true, nil
}

func (m *MockPostRepository) RemoveLike(ctx context.Context, postID, userID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]uint{postID, userID}
	if !m.likes[key] {
		return false, nil
	}
	delete(m.likes, key)
	return true, nil
}

func (m *MockPostRepository) HasLiked(ctx context.Context, postID, userID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.likes[[2]uint{postID, userID}], nil
}

func (m *MockPostRepository) CountLikes(ctx context.Context, postID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLikesLocked(postID), nil
}

func (m *MockPostRepository) countLikesLocked(postID uint) int64 {
	var count int64
	for key, liked := range m.likes {
		if key[0] == postID && liked {
			count++
		}
	}
	return count
}

func (m *MockPostRepository) LikedBy(ctx context.Context, postID uint) ([]uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []uint
	for key := range m.likes {
		if key[0] == postID {
			result = append(result, key[1])
		}
	}
	return result, nil
}

func (m *MockPostRepository) CountReplies(ctx context.Context, postID uint) (int64, error) {
	return m.replies.countForPost(postID), nil
}

// MockCommunityRepository is an in-memory community store for testing.
type MockCommunityRepository struct {
	mu          sync.Mutex
	communities map[uint]*models.Community
	members     map[[2]uint]bool
	nextID      uint
}

func NewMockCommunityRepository() *MockCommunityRepository {
	return &MockCommunityRepository{
		communities: make(map[uint]*models.Community),
		members:     make(map[[2]uint]bool),
		nextID:      1,
	}
}

func (m *MockCommunityRepository) Create(ctx context.Context, community *models.Community) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	community.ID = m.nextID
	m.nextID++
	m.communities[community.ID] = community
	return nil
}

func (m *MockCommunityRepository) FindByID(ctx context.Context, id uint) (*models.Community, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.communities[id]; ok {
		return c, nil
	}
	return nil, models.ErrNotFound
}

func (m *MockCommunityRepository) FindByName(ctx context.Context, name string) (*models.Community, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.communities {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MockCommunityRepository) AddMember(ctx context.Context, communityID, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[[2]uint{communityID, userID}] = true
	return nil
}

func (m *MockCommunityRepository) RemoveMember(ctx context.Context, communityID, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members, [2]uint{communityID, userID})
	return nil
}

func (m *MockCommunityRepository) GetMembers(ctx context.Context, communityID uint) ([]models.User, error) {
	return []models.User{}, nil
}

func (m *MockCommunityRepository) IsMember(ctx context.Context, communityID, userID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[[2]uint{communityID, userID}], nil
}

func (m *MockCommunityRepository) CountMembers(ctx context.Context, communityID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for key := range m.members {
		if key[0] == communityID {
			count++
		}
	}
	return count, nil
}

func (m *MockCommunityRepository) GetUserCommunities(ctx context.Context, userID uint) ([]models.Community, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.Community
	for key := range m.members {
		if key[1] == userID {
			if c, ok := m.communities[key[0]]; ok {
				result = append(result, *c)
			}
		}
	}
	return result, nil
}

func (m *MockCommunityRepository) Search(ctx context.Context, query string, limit int) ([]models.Community, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	query = strings.ToLower(query)
	var result []models.Community
	for _, c := range m.communities {
		if strings.Contains(strings.ToLower(c.Name), query) {
			result = append(result, *c)
		}
	}
	return result, nil
}

// MockRefreshTokenRepository is an in-memory token store for testing.
type MockRefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken
	nextID uint
}

func NewMockRefreshTokenRepository() *MockRefreshTokenRepository {
	return &MockRefreshTokenRepository{
		tokens: make(map[string]*models.RefreshToken),
		nextID: 1,
	}
}

func (m *MockRefreshTokenRepository) Create(token *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token.ID = m.nextID
	m.nextID++
	m.tokens[token.TokenHash] = token
	return nil
}

func (m *MockRefreshTokenRepository) FindValidByHash(tokenHash string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenHash]
	if !ok || !t.Active(time.Now()) {
		return nil, models.ErrNotFound
	}
	return t, nil
}

func (m *MockRefreshTokenRepository) RevokeByHash(tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := time.Now().UTC()
		t.RevokedAt = &now
	}
	return nil
}

func (m *MockRefreshTokenRepository) RevokeAllForUser(userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for _, t := range m.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			revoked := now
			t.RevokedAt = &revoked
		}
	}
	return nil
}
