package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"social-feed-go/internal/model"
	"social-feed-go/pkg/tasks"

	"gorm.io/gorm"
)

type memUsers struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]*model.User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint]*model.User{}} }

func (m *memUsers) Create(user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	user.ID = m.nextID
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memUsers) FindByUsername(username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) FindByID(userID uint) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Update(user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

type memTokens struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newMemTokens() *memTokens { return &memTokens{revoked: map[string]time.Duration{}} }

func (m *memTokens) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = ttl
	return nil
}

func (m *memTokens) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[tokenID]
	return ok, nil
}

// memPosts 实现 repository.PostRepository，Author 从 users 中补齐。
type memPosts struct {
	mu      sync.Mutex
	nextID  uint
	posts   map[uint]*model.Post
	users   *memUsers
	deleted []uint
}

func newMemPosts(users *memUsers) *memPosts {
	return &memPosts{posts: map[uint]*model.Post{}, users: users}
}

func (m *memPosts) withAuthor(p model.Post) model.Post {
	if u, err := m.users.FindByID(p.AuthorID); err == nil {
		p.Author = *u
	}
	return p
}

func (m *memPosts) Create(_ context.Context, post *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	post.ID = m.nextID
	post.CreatedAt = time.Unix(int64(1_700_000_000+post.ID), 0)
	post.UpdatedAt = post.CreatedAt
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

func (m *memPosts) FindByID(_ context.Context, id uint) (*model.Post, error) {
	m.mu.Lock()
	p, ok := m.posts[id]
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := m.withAuthor(*p)
	return &out, nil
}

func (m *memPosts) List(_ context.Context, authorID uint, offset, limit int) ([]model.Post, error) {
	m.mu.Lock()
	var all []model.Post
	for _, p := range m.posts {
		if authorID == 0 || p.AuthorID == authorID {
			all = append(all, *p)
		}
	}
	m.mu.Unlock()
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	out := make([]model.Post, 0, end-offset)
	for _, p := range all[offset:end] {
		out = append(out, m.withAuthor(p))
	}
	return out, nil
}

func (m *memPosts) UpdateContent(_ context.Context, post *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.posts[post.ID]
	p.Text = post.Text
	p.ImageURL = post.ImageURL
	p.UpdatedAt = p.UpdatedAt.Add(time.Minute)
	return nil
}

func (m *memPosts) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.posts, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memPosts) FindRecent(ctx context.Context, limit int) ([]model.Post, error) {
	return m.List(ctx, 0, 0, limit)
}

func (m *memPosts) UpdateEmbedding(_ context.Context, id uint, vector []float32, modelName string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Embedding = vector
	p.EmbeddingModel = modelName
	p.EmbeddingUpdatedAt = &at
	return nil
}

func (m *memPosts) FindAfterID(_ context.Context, afterID uint, limit int) ([]model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Post
	for id := afterID + 1; id <= m.nextID && len(out) < limit; id++ {
		if p, ok := m.posts[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memPosts) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.posts)), nil
}

type likeKey struct{ postID, userID uint }

// memLikes 实现 repository.LikeRepository，计数写回 posts。
type memLikes struct {
	mu    sync.Mutex
	likes map[likeKey]bool
	posts *memPosts
}

func newMemLikes(posts *memPosts) *memLikes {
	return &memLikes{likes: map[likeKey]bool{}, posts: posts}
}

func (m *memLikes) Like(_ context.Context, postID, userID uint) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts.mu.Lock()
	defer m.posts.mu.Unlock()
	p := m.posts.posts[postID]
	if !m.likes[likeKey{postID, userID}] {
		m.likes[likeKey{postID, userID}] = true
		p.LikesCount++
	}
	return p.LikesCount, nil
}

func (m *memLikes) Unlike(_ context.Context, postID, userID uint) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts.mu.Lock()
	defer m.posts.mu.Unlock()
	p := m.posts.posts[postID]
	if m.likes[likeKey{postID, userID}] {
		delete(m.likes, likeKey{postID, userID})
		if p.LikesCount > 0 {
			p.LikesCount--
		}
	}
	return p.LikesCount, nil
}

func (m *memLikes) LikedPostIDs(_ context.Context, userID uint, postIDs []uint) (map[uint]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint]bool, len(postIDs))
	for _, id := range postIDs {
		if m.likes[likeKey{id, userID}] {
			out[id] = true
		}
	}
	return out, nil
}

type memComments struct {
	mu       sync.Mutex
	nextID   uint
	comments []model.Comment
	posts    *memPosts
}

func (m *memComments) Create(_ context.Context, comment *model.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	comment.ID = m.nextID
	m.comments = append(m.comments, *comment)
	m.posts.mu.Lock()
	m.posts.posts[comment.PostID].CommentsCount++
	m.posts.mu.Unlock()
	return nil
}

func (m *memComments) ListByPost(_ context.Context, postID uint, offset, limit int) ([]model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Comment
	for _, c := range m.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeUploads struct {
	mu    sync.Mutex
	kinds []string
	err   error
}

func (f *fakeUploads) UploadImage(_ context.Context, kind string, image ImageUpload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.kinds = append(f.kinds, kind)
	return "http://cdn.test/" + kind + "/" + image.Filename, nil
}

type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []tasks.PostEmbeddingTask
	err   error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, task tasks.PostEmbeddingTask) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, task)
	return d.err
}

type recordingStore struct {
	objectName  string
	contentType string
	body        []byte
}

func (s *recordingStore) PutImage(_ context.Context, objectName string, r io.Reader, _ int64, contentType string) (string, error) {
	s.objectName = objectName
	s.contentType = contentType
	s.body, _ = io.ReadAll(r)
	return "http://minio.test/bucket/" + objectName, nil
}

// memRequests 实现 repository.RequestRepository。
type memRequests struct {
	mu     sync.Mutex
	nextID uint
	reqs   map[uint]*model.Request
}

func newMemRequests() *memRequests { return &memRequests{reqs: map[uint]*model.Request{}} }

func (m *memRequests) Create(_ context.Context, req *model.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	req.ID = m.nextID
	req.CreatedAt = time.Unix(int64(1_700_000_000+req.ID), 0)
	req.UpdatedAt = req.CreatedAt
	cp := *req
	m.reqs[req.ID] = &cp
	return nil
}

func (m *memRequests) FindByID(_ context.Context, id uint) (*model.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reqs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRequests) ListRecent(_ context.Context, limit int) ([]model.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]model.Request, 0, len(m.reqs))
	for _, r := range m.reqs {
		all = append(all, *r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *memRequests) Update(_ context.Context, req *model.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	cp.UpdatedAt = cp.UpdatedAt.Add(time.Minute)
	m.reqs[req.ID] = &cp
	return nil
}

func (m *memRequests) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reqs[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.reqs, id)
	return nil
}
