package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screener-go/internal/storage/models"
	"resume-screener-go/internal/types"
)

// fakeExtractor 按文件名返回预设文本
type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(ctx context.Context, data []byte, fileName string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// fakeScreener 按简历文本返回预设结果
type fakeScreener struct {
	mu      sync.Mutex
	results map[string]*types.CombinedScreeningResult // key: resumeText
	err     error
	calls   int
}

func (f *fakeScreener) Parse(ctx context.Context, resumeText string) (*types.ParsedResume, error) {
	result, err := f.Screen(ctx, "", resumeText)
	if err != nil {
		return nil, err
	}
	return &result.ResumeData, nil
}

func (f *fakeScreener) Screen(ctx context.Context, jobDescription string, resumeText string) (*types.CombinedScreeningResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	result, ok := f.results[resumeText]
	if !ok {
		return nil, fmt.Errorf("no fake result for resume %q", resumeText)
	}
	return result, nil
}

func (f *fakeScreener) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeStore 内存实现的候选人存储
type fakeStore struct {
	mu         sync.Mutex
	candidates map[string]*models.Candidate // key: email
	order      []string                     // 插入顺序，保证 ListCandidates 结果稳定
	records    []models.ScreeningRecord
	upsertErr  error
	recordErr  error
	listErr    error
	nextID     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{candidates: make(map[string]*models.Candidate)}
}

func (f *fakeStore) UpsertCandidate(ctx context.Context, candidate *models.Candidate) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return "", f.upsertErr
	}
	key := candidate.EmailString()
	if key == "" {
		// 无邮箱的候选人无法跨次识别，每次都是新记录
		f.nextID++
		candidate.CandidateID = fmt.Sprintf("cand-%d", f.nextID)
		key = "id:" + candidate.CandidateID
		f.order = append(f.order, key)
	} else if existing, ok := f.candidates[key]; ok {
		candidate.CandidateID = existing.CandidateID
	} else {
		f.nextID++
		candidate.CandidateID = fmt.Sprintf("cand-%d", f.nextID)
		f.order = append(f.order, key)
	}
	clone := *candidate
	f.candidates[key] = &clone
	return candidate.CandidateID, nil
}

func (f *fakeStore) RecordScreening(ctx context.Context, record *models.ScreeningRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeStore) GetCandidateByEmail(ctx context.Context, email string) (*models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.candidates[email]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, errors.New("not found")
}

func (f *fakeStore) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Candidate
	for _, key := range f.order {
		out = append(out, *f.candidates[key])
	}
	return out, nil
}

func (f *fakeStore) ListScreeningsByCandidate(ctx context.Context, candidateID string) ([]models.ScreeningRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ScreeningRecord
	for _, r := range f.records {
		if r.CandidateID == candidateID {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeDedup 内存去重集合
type fakeDedup struct {
	mu      sync.Mutex
	members map[string]bool
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{members: make(map[string]bool)}
}

func (f *fakeDedup) CheckScreeningDedup(ctx context.Context, digest string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[digest], nil
}

func (f *fakeDedup) AddScreeningDedup(ctx context.Context, digest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[digest] = true
	return nil
}

func sampleResult(email string, score int) *types.CombinedScreeningResult {
	return &types.CombinedScreeningResult{
		ResumeData: types.ParsedResume{
			FullName:    "张伟",
			Email:       email,
			PhoneNumber: "13800138000",
			Skills:      []string{"Go"},
		},
		MatchData: types.MatchResult{
			MatchScore: score,
			Summary:    "匹配度摘要",
			Strengths:  []string{"经验丰富"},
			Weaknesses: []string{"缺少高并发经验"},
			Breakdown: []types.MatchBreakdownItem{
				{Category: "Educational Background", MatchPercentage: 80},
				{Category: "Technical Skills", MatchPercentage: 85},
				{Category: "Relevant Experience/Projects", MatchPercentage: 82},
				{Category: "Soft Skills", MatchPercentage: 70},
			},
		},
		JobRoleTitle: "后端工程师",
	}
}

func newTestProcessor(t *testing.T, comp *Components) *ScreeningProcessor {
	t.Helper()
	p, err := NewScreeningProcessor(comp, &Settings{ModelTimeout: 5 * time.Second})
	require.NoError(t, err)
	return p
}

func TestProcessScreeningSuccess(t *testing.T) {
	store := newFakeStore()
	dedup := newFakeDedup()
	screener := &fakeScreener{results: map[string]*types.CombinedScreeningResult{
		"简历全文": sampleResult("zhangwei@example.com", 82),
	}}
	p := newTestProcessor(t, &Components{
		Extractor:  &fakeExtractor{text: "简历全文"},
		Screener:   screener,
		Candidates: store,
		Dedup:      dedup,
	})

	outcome, err := p.ProcessScreening(context.Background(), []byte("raw"), "resume.pdf", "岗位描述")
	require.NoError(t, err)

	assert.NotEmpty(t, outcome.CandidateID)
	assert.Equal(t, 82, outcome.Result.MatchData.MatchScore)

	// 候选人与筛选记录均已落库
	stored, err := store.GetCandidateByEmail(context.Background(), "zhangwei@example.com")
	require.NoError(t, err)
	assert.Equal(t, "简历全文", stored.ResumeText)

	records, err := store.ListScreeningsByCandidate(context.Background(), outcome.CandidateID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "后端工程师", records[0].JobRoleTitle)
	assert.Equal(t, "岗位描述", records[0].JobDescriptionText)
}

func TestProcessScreeningSameEmailKeepsOneCandidate(t *testing.T) {
	store := newFakeStore()
	screener := &fakeScreener{results: map[string]*types.CombinedScreeningResult{
		"简历全文": sampleResult("zhangwei@example.com", 82),
	}}
	p := newTestProcessor(t, &Components{
		Extractor:  &fakeExtractor{text: "简历全文"},
		Screener:   screener,
		Candidates: store,
	})

	first, err := p.ProcessScreening(context.Background(), []byte("raw"), "resume.pdf", "岗位A")
	require.NoError(t, err)
	second, err := p.ProcessScreening(context.Background(), []byte("raw"), "resume.pdf", "岗位B")
	require.NoError(t, err)

	// 同一邮箱不产生第二个候选人，但筛选历史追加
	assert.Equal(t, first.CandidateID, second.CandidateID)
	records, err := store.ListScreeningsByCandidate(context.Background(), first.CandidateID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestProcessScreeningWithoutEmailCreatesNewCandidate(t *testing.T) {
	store := newFakeStore()
	screener := &fakeScreener{results: map[string]*types.CombinedScreeningResult{
		"无联系方式的简历": sampleResult("", 75),
	}}
	p := newTestProcessor(t, &Components{
		Extractor:  &fakeExtractor{text: "无联系方式的简历"},
		Screener:   screener,
		Candidates: store,
	})

	first, err := p.ProcessScreening(context.Background(), []byte("raw"), "resume.pdf", "岗位A")
	require.NoError(t, err)
	second, err := p.ProcessScreening(context.Background(), []byte("raw"), "resume.pdf", "岗位B")
	require.NoError(t, err)

	// 无邮箱无法识别身份，两次筛选产生两条独立的候选人记录
	assert.NotEqual(t, first.CandidateID, second.CandidateID)
	candidates, err := store.ListCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Nil(t, candidates[0].Email)
}

func TestProcessScreeningExtractionFailure(t *testing.T) {
	extractErr := errors.New("文件损坏")
	p := newTestProcessor(t, &Components{
		Extractor:  &fakeExtractor{err: extractErr},
		Screener:   &fakeScreener{},
		Candidates: newFakeStore(),
	})

	_, err := p.ProcessScreening(context.Background(), []byte("raw"), "resume.pdf", "岗位描述")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTextExtractionFailed)
	// 底层原因保留在错误链上
	assert.ErrorIs(t, err, extractErr)
}

func TestProcessScreeningDuplicateShortCircuit(t *testing.T) {
	store := newFakeStore()
	dedup := newFakeDedup()
	screener := &fakeScreener{results: map[string]*types.CombinedScreeningResult{
		"简历全文": sampleResult("zhangwei@example.com", 82),
	}}
	p := newTestProcessor(t, &Components{
		Extractor:  &fakeExtractor{text: "简历全文"},
		Screener:   screener,
		Candidates: store,
		Dedup:      dedup,
	})

	_, err := p.ProcessScreening(context.Background(), []byte("raw"), "resume.pdf", "岗位描述")
	require.NoError(t, err)
	require.Equal(t, 1, screener.callCount())

	// 同一简历+岗位组合被短路，不再调用模型
	_, err = p.ProcessScreening(context.Background(), []byte("raw"), "resume.pdf", "岗位描述")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateScreening)
	assert.Equal(t, 1, screener.callCount())

	// 不同岗位的同一简历不受影响
	screener.results["简历全文"] = sampleResult("zhangwei@example.com", 60)
	_, err = p.ProcessScreening(context.Background(), []byte("raw"), "resume.pdf", "另一个岗位")
	require.NoError(t, err)
}

func TestProcessScreeningModelFailure(t *testing.T) {
	modelErr := errors.New("模型超时")
	p := newTestProcessor(t, &Components{
		Extractor:  &fakeExtractor{text: "简历全文"},
		Screener:   &fakeScreener{err: modelErr},
		Candidates: newFakeStore(),
	})

	_, err := p.ProcessScreening(context.Background(), []byte("raw"), "resume.pdf", "岗位描述")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelScreeningFailed)
	assert.ErrorIs(t, err, modelErr)
}

func TestProcessScreeningPersistenceFailure(t *testing.T) {
	store := newFakeStore()
	store.upsertErr = errors.New("数据库不可用")
	p := newTestProcessor(t, &Components{
		Extractor: &fakeExtractor{text: "简历全文"},
		Screener: &fakeScreener{results: map[string]*types.CombinedScreeningResult{
			"简历全文": sampleResult("zhangwei@example.com", 82),
		}},
		Candidates: store,
	})

	_, err := p.ProcessScreening(context.Background(), []byte("raw"), "resume.pdf", "岗位描述")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistenceFailed)
}

func TestParseResume(t *testing.T) {
	p := newTestProcessor(t, &Components{
		Extractor: &fakeExtractor{text: "简历全文"},
		Screener: &fakeScreener{results: map[string]*types.CombinedScreeningResult{
			"简历全文": sampleResult("zhangwei@example.com", 82),
		}},
		Candidates: newFakeStore(),
	})

	parsed, err := p.ParseResume(context.Background(), []byte("raw"), "resume.pdf")
	require.NoError(t, err)
	assert.Equal(t, "zhangwei@example.com", parsed.Email)
}
