package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/bountyboard/internal/common"
	"github.com/dmitrijs2005/bountyboard/internal/dbx"
	"github.com/dmitrijs2005/bountyboard/internal/server/models"
	"github.com/dmitrijs2005/bountyboard/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/bountyboard/internal/server/repositories/submissions"
	"github.com/dmitrijs2005/bountyboard/internal/server/repositories/users"
)

// memDB backs the in-memory repositories. fail holds injected errors keyed
// by "<repo>.<Method>". Writes made through repositories bound to a *sql.Tx
// are listed in txWrites and stay revertible until commit or rollback.
type memDB struct {
	mu          sync.Mutex
	nextID      int64
	users       map[string]*models.User
	challenges  map[int64]*models.Challenge
	submissions map[int64]*models.Submission
	fail        map[string]error
	calls       []string
	txWrites    []string
	undo        []func()
}

func newMemDB() *memDB {
	return &memDB{
		users:       map[string]*models.User{},
		challenges:  map[int64]*models.Challenge{},
		submissions: map[int64]*models.Submission{},
		fail:        map[string]error{},
	}
}

func (m *memDB) hit(op string) error {
	m.calls = append(m.calls, op)
	return m.fail[op]
}

// wrote journals a write. Writes outside a transaction are final.
func (m *memDB) wrote(inTx bool, op string, undo func()) {
	if !inTx {
		return
	}
	m.txWrites = append(m.txWrites, op)
	m.undo = append(m.undo, undo)
}

func (m *memDB) commit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = nil
}

func (m *memDB) rollback() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.undo) - 1; i >= 0; i-- {
		m.undo[i]()
	}
	m.undo = nil
}

func (m *memDB) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memDB) addUser(id, username string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{ID: id, Username: username, Email: username + "@example.com", CreatedAt: time.Now()}
	m.users[id] = u
	return u
}

func (m *memDB) addChallenge(creatorID string, prize int) *models.Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &models.Challenge{
		ID:         m.id(),
		CreatorID:  creatorID,
		Name:       "Challenge",
		TargetLink: "https://target.example.com",
		Prize:      prize,
		Methods:    models.Methods{"XSS"},
		Status:     models.ChallengeOnGoing,
		Note:       "note",
		CreatedAt:  time.Now(),
	}
	m.challenges[c.ID] = c
	return c
}

func (m *memDB) addSubmission(challengeID int64, userID string, status models.SubmissionStatus) *models.Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &models.Submission{
		ID:             m.id(),
		ChallengeID:    challengeID,
		UserID:         userID,
		Description:    "proof",
		ProofOfExploit: "proofs/" + userID + "/p.png",
		Status:         status,
		CreatedAt:      time.Now(),
	}
	m.submissions[s.ID] = s
	return s
}

type memManager struct{ db *memDB }

func (m memManager) RunMigrations(context.Context, *sql.DB) error  { return nil }
func (m memManager) Users(dbx.DBTX) users.Repository               { return memUsers{m.db} }
func (m memManager) Challenges(h dbx.DBTX) challenges.Repository   { return memChallenges{m.db, inTx(h)} }
func (m memManager) Submissions(h dbx.DBTX) submissions.Repository { return memSubmissions{m.db, inTx(h)} }

func inTx(h dbx.DBTX) bool {
	_, ok := h.(*sql.Tx)
	return ok
}

type memUsers struct{ m *memDB }

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("users.Create"); err != nil {
		return nil, err
	}
	cp := *u
	cp.ID = fmt.Sprintf("u-%d", r.m.id())
	cp.CreatedAt = time.Now()
	r.m.users[cp.ID] = &cp
	return &cp, nil
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := r.m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	cp.PasswordHash = ""
	return &cp, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("users.GetByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) EmailTaken(_ context.Context, email, exclude string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Email == email && u.ID != exclude {
			return true, nil
		}
	}
	return false, r.m.hit("users.EmailTaken")
}

func (r memUsers) UsernameTaken(_ context.Context, username, exclude string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Username == username && u.ID != exclude {
			return true, nil
		}
	}
	return false, r.m.hit("users.UsernameTaken")
}

func (r memUsers) UpdateProfile(_ context.Context, id string, upd models.ProfileUpdate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("users.UpdateProfile"); err != nil {
		return err
	}
	u, ok := r.m.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Username, u.Email, u.Note = upd.Username, upd.Email, upd.Note
	u.FacebookLink, u.TelegramLink, u.RedditLink = upd.FacebookLink, upd.TelegramLink, upd.RedditLink
	u.LinkedInLink, u.GitHubLink = upd.LinkedInLink, upd.GitHubLink
	return nil
}

func (r memUsers) SetProfileImage(_ context.Context, id, key string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("users.SetProfileImage"); err != nil {
		return err
	}
	u, ok := r.m.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.ProfileImage = key
	return nil
}

type memChallenges struct {
	m    *memDB
	inTx bool
}

func (r memChallenges) Create(_ context.Context, c *models.Challenge) (*models.Challenge, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("challenges.Create"); err != nil {
		return nil, err
	}
	cp := *c
	cp.ID = r.m.id()
	cp.Status = models.ChallengeOnGoing
	cp.CreatedAt = time.Now()
	r.m.challenges[cp.ID] = &cp
	return &cp, nil
}

func (r memChallenges) byStatus(status models.ChallengeStatus) []models.Challenge {
	out := []models.Challenge{}
	for _, c := range r.m.challenges {
		if c.Status == status {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r memChallenges) ListByStatusAndPage(_ context.Context, status models.ChallengeStatus, pageIndex, pageSize int) ([]models.Challenge, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("challenges.ListByStatusAndPage"); err != nil {
		return nil, err
	}
	all := r.byStatus(status)
	from := pageIndex * pageSize
	if from >= len(all) {
		return []models.Challenge{}, nil
	}
	return all[from:min(from+pageSize, len(all))], nil
}

func (r memChallenges) CountByStatus(_ context.Context, status models.ChallengeStatus) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return len(r.byStatus(status)), r.m.hit("challenges.CountByStatus")
}

func (r memChallenges) GetByID(_ context.Context, id int64) (*models.ChallengeDetails, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("challenges.GetByID"); err != nil {
		return nil, err
	}
	c, ok := r.m.challenges[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	d := &models.ChallengeDetails{Challenge: *c}
	if u, ok := r.m.users[c.CreatorID]; ok {
		d.CreatorUsername = u.Username
	}
	if c.WinnerID != nil {
		if u, ok := r.m.users[*c.WinnerID]; ok {
			name := u.Username
			d.WinnerUsername = &name
		}
	}
	return d, nil
}

func (r memChallenges) ListByCreator(_ context.Context, userID string) ([]models.ChallengeWithSubmissions, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("challenges.ListByCreator"); err != nil {
		return nil, err
	}
	out := []models.ChallengeWithSubmissions{}
	for _, c := range r.m.challenges {
		if c.CreatorID != userID {
			continue
		}
		cws := models.ChallengeWithSubmissions{Challenge: *c, Submissions: []models.Submission{}}
		for _, s := range r.m.submissions {
			if s.ChallengeID == c.ID {
				cws.Submissions = append(cws.Submissions, *s)
			}
		}
		out = append(out, cws)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memChallenges) Update(_ context.Context, id int64, upd models.ChallengeUpdate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("challenges.Update"); err != nil {
		return err
	}
	c, ok := r.m.challenges[id]
	if !ok {
		return common.ErrorNotFound
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.TargetLink != nil {
		c.TargetLink = *upd.TargetLink
	}
	if upd.Prize != nil {
		c.Prize = *upd.Prize
	}
	if upd.Methods != nil {
		c.Methods = upd.Methods
	}
	if upd.Note != nil {
		c.Note = *upd.Note
	}
	return nil
}

func (r memChallenges) CloseWithWinner(_ context.Context, id int64, winnerID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("challenges.CloseWithWinner"); err != nil {
		return err
	}
	c, ok := r.m.challenges[id]
	if !ok || c.Status != models.ChallengeOnGoing {
		return common.ErrChallengeClosed
	}
	prevStatus, prevWinner := c.Status, c.WinnerID
	c.Status = models.ChallengeDone
	c.WinnerID = &winnerID
	r.m.wrote(r.inTx, "challenges.CloseWithWinner", func() { c.Status, c.WinnerID = prevStatus, prevWinner })
	return nil
}

func (r memChallenges) ListWonByUser(_ context.Context, userID string, limit int) ([]models.WonChallenge, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("challenges.ListWonByUser"); err != nil {
		return nil, err
	}
	out := []models.WonChallenge{}
	for _, c := range r.m.challenges {
		if c.WinnerID == nil || *c.WinnerID != userID {
			continue
		}
		for _, s := range r.m.submissions {
			if s.ChallengeID == c.ID && s.Status == models.SubmissionSuccess {
				out = append(out, models.WonChallenge{Challenge: *c, Submission: *s})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memChallenges) Leaderboard(_ context.Context) ([]models.LeaderboardEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("challenges.Leaderboard"); err != nil {
		return nil, err
	}
	byUser := map[string]*models.LeaderboardEntry{}
	for _, c := range r.m.challenges {
		if c.Status != models.ChallengeDone || c.WinnerID == nil {
			continue
		}
		e, ok := byUser[*c.WinnerID]
		if !ok {
			u := r.m.users[*c.WinnerID]
			e = &models.LeaderboardEntry{UserID: u.ID, Username: u.Username, ProfileImage: u.ProfileImage}
			byUser[u.ID] = e
		}
		e.AchievementsCount++
		e.TotalPrize += int64(c.Prize)
	}
	out := make([]models.LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		out = append(out, *e)
	}
	return out, nil
}

type memSubmissions struct {
	m    *memDB
	inTx bool
}

func (r memSubmissions) Create(_ context.Context, s *models.Submission) (*models.Submission, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("submissions.Create"); err != nil {
		return nil, err
	}
	cp := *s
	cp.ID = r.m.id()
	cp.Status = models.SubmissionPending
	cp.CreatedAt = time.Now()
	r.m.submissions[cp.ID] = &cp
	return &cp, nil
}

func (r memSubmissions) HasStatus(_ context.Context, challengeID int64, userID string, status models.SubmissionStatus) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("submissions.HasStatus"); err != nil {
		return false, err
	}
	for _, s := range r.m.submissions {
		if s.ChallengeID == challengeID && s.UserID == userID && s.Status == status {
			return true, nil
		}
	}
	return false, nil
}

func (r memSubmissions) ListByChallengeForCreator(_ context.Context, challengeID int64, creatorUserID string) ([]models.SubmissionView, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("submissions.ListByChallengeForCreator"); err != nil {
		return nil, err
	}
	out := []models.SubmissionView{}
	c, ok := r.m.challenges[challengeID]
	if !ok || c.CreatorID != creatorUserID {
		return out, nil
	}
	for _, s := range r.m.submissions {
		if s.ChallengeID != challengeID {
			continue
		}
		v := models.SubmissionView{
			Submission:          *s,
			ChallengeName:       c.Name,
			ChallengeStatus:     c.Status,
			ChallengeTargetLink: c.TargetLink,
		}
		if u, ok := r.m.users[s.UserID]; ok {
			v.Username = u.Username
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memSubmissions) GetByIDWithChallenge(_ context.Context, id int64) (*models.SubmissionWithChallenge, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("submissions.GetByIDWithChallenge"); err != nil {
		return nil, err
	}
	s, ok := r.m.submissions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.SubmissionWithChallenge{Submission: *s, Challenge: *r.m.challenges[s.ChallengeID]}, nil
}

func (r memSubmissions) SetStatus(_ context.Context, id int64, status models.SubmissionStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("submissions.SetStatus"); err != nil {
		return err
	}
	s, ok := r.m.submissions[id]
	if !ok || s.Status != models.SubmissionPending {
		return common.ErrSubmissionDecided
	}
	prev := s.Status
	s.Status = status
	r.m.wrote(r.inTx, "submissions.SetStatus", func() { s.Status = prev })
	return nil
}

func (r memSubmissions) SetStatusForChallenge(_ context.Context, challengeID int64, status models.SubmissionStatus, exceptID int64) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.hit("submissions.SetStatusForChallenge"); err != nil {
		return 0, err
	}
	var changed []*models.Submission
	for _, s := range r.m.submissions {
		if s.ChallengeID == challengeID && s.ID != exceptID && s.Status == models.SubmissionPending {
			s.Status = status
			changed = append(changed, s)
		}
	}
	r.m.wrote(r.inTx, "submissions.SetStatusForChallenge", func() {
		for _, s := range changed {
			s.Status = models.SubmissionPending
		}
	})
	return int64(len(changed)), nil
}

// memObjectStore records uploads and deletions.
type memObjectStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	uploadErr error
	urlErr    error
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: map[string][]byte{}}
}

func (s *memObjectStore) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *memObjectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *memObjectStore) PublicURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	if s.urlErr != nil {
		return "", s.urlErr
	}
	return "https://cdn.test/" + key, nil
}

// memCache mirrors the generation rules of the Redis cache. beforeSet runs
// between the generation read and the write.
type memCache struct {
	entries     []models.LeaderboardEntry
	ok          bool
	gen         int64
	getErr      error
	genErr      error
	sets        int
	invalidated int
	beforeSet   func()
}

func (c *memCache) Generation(context.Context) (int64, error) {
	return c.gen, c.genErr
}

func (c *memCache) Get(context.Context) ([]models.LeaderboardEntry, bool, error) {
	return c.entries, c.ok, c.getErr
}

func (c *memCache) Set(_ context.Context, gen int64, e []models.LeaderboardEntry) error {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	c.sets++
	if gen == c.gen {
		c.entries, c.ok = e, true
	}
	return nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.entries, c.ok = nil, false
	c.gen++
	c.invalidated++
	return nil
}

func pngUpload(name string) *Upload {
	body := "\x89PNG fake image"
	return &Upload{
		Filename:    name,
		ContentType: "image/png",
		Size:        int64(len(body)),
		Body:        bytes.NewBufferString(body),
	}
}

func hasCall(calls []string, prefix string) bool {
	for _, c := range calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
