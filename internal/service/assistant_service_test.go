package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-assistant-be/internal/constant"
	"pdf-assistant-be/pkg/llm"
	"pdf-assistant-be/pkg/parser"
	"pdf-assistant-be/pkg/rag/history"
	"pdf-assistant-be/pkg/rag/retrieve"
	"pdf-assistant-be/pkg/rag/rewrite"
	"pdf-assistant-be/pkg/store"
	"pdf-assistant-be/pkg/whatsapp"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type fakeParser struct {
	pages []parser.Page
	err   error
}

func (f *fakeParser) Parse(_ context.Context, _ string) ([]parser.Page, error) {
	return f.pages, f.err
}

type fakeIndex struct {
	byOwner    map[string][]store.Passage
	replaceErr error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{byOwner: map[string][]store.Passage{}}
}

func (f *fakeIndex) Replace(_ context.Context, owner string, passages []store.Passage) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.byOwner[owner] = passages
	return nil
}

func (f *fakeIndex) Query(_ context.Context, owner string, _ string, k int) ([]store.Passage, error) {
	passages := f.byOwner[owner]
	if len(passages) > k {
		passages = passages[:k]
	}
	return passages, nil
}

func (f *fakeIndex) AllFor(_ context.Context, owner string) ([]store.Passage, error) {
	return f.byOwner[owner], nil
}

func (f *fakeIndex) Delete(_ context.Context, owner string) error {
	delete(f.byOwner, owner)
	return nil
}

// fakeLLM answers keyword-extraction prompts with a scripted term list and
// everything else with a scripted answer.
type fakeLLM struct {
	rewriteResponse string
	answer          string
	answerErr       error
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message, _ ...llm.Option) (string, error) {
	return f.Generate(ctx, messages[len(messages)-1].Content)
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	if strings.Contains(prompt, "keyword phrases") {
		return f.rewriteResponse, nil
	}
	return f.answer, f.answerErr
}

type sentMessage struct {
	user    string
	text    string
	buttons []whatsapp.Button
}

type fakeSender struct {
	sent []sentMessage
}

func (f *fakeSender) SendText(_ context.Context, user string, text string) error {
	f.sent = append(f.sent, sentMessage{user: user, text: text})
	return nil
}

func (f *fakeSender) SendButtons(_ context.Context, user string, text string, buttons []whatsapp.Button) error {
	f.sent = append(f.sent, sentMessage{user: user, text: text, buttons: buttons})
	return nil
}

func (f *fakeSender) texts() []string {
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.text
	}
	return out
}

func (f *fakeSender) last() sentMessage {
	return f.sent[len(f.sent)-1]
}

type fakeMedia struct {
	dir      string
	err      error
	lastPath string
}

func (f *fakeMedia) DownloadMedia(_ context.Context, mediaID string, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(f.dir, mediaID+".pdf")
	if err := os.WriteFile(path, []byte("pdf bytes"), 0644); err != nil {
		return "", err
	}
	f.lastPath = path
	return path, nil
}

type fixture struct {
	svc    IAssistantService
	sender *fakeSender
	index  *fakeIndex
	llm    *fakeLLM
	parser *fakeParser
	media  *fakeMedia
	memory *history.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	docParser := &fakeParser{pages: []parser.Page{{
		Text:     "The product ships worldwide.\n\nThe warranty lasts two years.",
		Metadata: map[string]interface{}{"page": 1},
	}}}
	index := newFakeIndex()
	llmStub := &fakeLLM{
		rewriteResponse: `["warranty"]`,
		answer:          "Here is your grounded answer.",
	}
	memory := history.NewMemory(store.NewMemoryStore())
	sender := &fakeSender{}
	media := &fakeMedia{dir: t.TempDir()}
	retriever := retrieve.NewRetriever(rewrite.NewRewriter(llmStub), index)

	svc := NewAssistantService(
		docParser,
		index,
		retriever,
		memory,
		llmStub,
		sender,
		media,
		nopLogger{},
		t.TempDir(),
	)
	return &fixture{
		svc:    svc,
		sender: sender,
		index:  index,
		llm:    llmStub,
		parser: docParser,
		media:  media,
		memory: memory,
	}
}

func TestGreeting(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.HandleText(context.Background(), "user-1", "hello"))
	assert.Equal(t, []string{constant.MsgGreeting}, f.sender.texts())
}

func TestQuestionBeforeUpload(t *testing.T) {
	f := newFixture(t)

	err := f.svc.HandleText(context.Background(), "user-1", "what does it say?")
	assert.Error(t, err)
	assert.Equal(t, []string{constant.MsgNoDocument}, f.sender.texts())
}

func TestUploadIndexesAndOffersStartButtons(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleDocument(ctx, "user-1", "media-1"))

	texts := f.sender.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, constant.MsgParsing, texts[0])
	assert.Equal(t, constant.MsgIndexed, texts[1])
	assert.Equal(t, whatsapp.ButtonsStart, f.sender.last().buttons)

	assert.NotEmpty(t, f.index.byOwner["user-1"])

	state, err := f.memory.GetContext(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, state.HasDocument)
	assert.Zero(t, state.QueryCount)
	assert.NotEmpty(t, state.DocumentRef)
}

func TestParseFailureAsksForResend(t *testing.T) {
	f := newFixture(t)
	f.parser.err = errors.New("corrupt file")

	err := f.svc.HandleDocument(context.Background(), "user-1", "media-1")
	assert.Error(t, err)
	assert.Equal(t, constant.MsgParseFailed, f.sender.last().text)

	state, stateErr := f.memory.GetContext(context.Background(), "user-1")
	require.NoError(t, stateErr)
	assert.False(t, state.HasDocument)

	// The session never references the download, so it is reclaimed here.
	assert.NoFileExists(t, f.media.lastPath)
}

func TestIndexingFailureAsksForResend(t *testing.T) {
	f := newFixture(t)
	f.index.replaceErr = errors.New("embedding service down")

	err := f.svc.HandleDocument(context.Background(), "user-1", "media-1")
	assert.Error(t, err)
	assert.Equal(t, constant.MsgIndexingFailed, f.sender.last().text)
	assert.NoFileExists(t, f.media.lastPath)
}

func TestQuestionWithoutKeywordOverlapStillAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleDocument(ctx, "user-1", "media-1"))
	f.llm.rewriteResponse = `["quantum chromodynamics"]` // matches nothing indexed
	f.sender.sent = nil

	require.NoError(t, f.svc.HandleText(ctx, "user-1", "tell me about quantum chromodynamics"))

	// Fallback retrieval kept the top similarity results, so the answer is
	// still grounded and non-empty.
	require.NotEmpty(t, f.sender.sent)
	assert.Equal(t, "Here is your grounded answer.", f.sender.sent[0].text)
}

func TestContinueButtonsEveryThirdQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleDocument(ctx, "user-1", "media-1"))

	for i := 1; i <= 3; i++ {
		f.sender.sent = nil
		require.NoError(t, f.svc.HandleText(ctx, "user-1", fmt.Sprintf("warranty question %d", i)))

		if i%constant.ContinueButtonsEvery == 0 {
			assert.Equal(t, constant.MsgWhatNext, f.sender.last().text)
			assert.Equal(t, whatsapp.ButtonsContinue, f.sender.last().buttons)
		} else {
			assert.Empty(t, f.sender.last().buttons)
		}
	}
}

func TestQuestionAndAnswerRecordedInHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleDocument(ctx, "user-1", "media-1"))
	require.NoError(t, f.svc.HandleText(ctx, "user-1", "how long is the warranty?"))

	turns, err := f.memory.GetHistory(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, store.Turn{Role: store.RoleUser, Content: "how long is the warranty?"}, turns[0])
	assert.Equal(t, store.RoleAssistant, turns[1].Role)
}

func TestSummaryButton(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleDocument(ctx, "user-1", "media-1"))
	f.llm.answer = "A detailed summary."
	f.sender.sent = nil

	require.NoError(t, f.svc.HandleButton(ctx, "user-1", constant.ButtonSummary))
	assert.Equal(t, "A detailed summary.", f.sender.sent[0].text)

	state, err := f.memory.GetContext(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "A detailed summary.", state.LastSummary)

	turns, err := f.memory.GetHistory(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, constant.SummaryHistoryLabel, turns[0].Content)
}

func TestQueryButtonSwitchesMode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleDocument(ctx, "user-1", "media-1"))
	require.NoError(t, f.svc.HandleButton(ctx, "user-1", constant.ButtonQuery))

	assert.Equal(t, constant.MsgAskQuestion, f.sender.last().text)

	state, err := f.memory.GetContext(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, store.ModeQuerying, state.Mode)
}

func TestEndSessionClearsEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleDocument(ctx, "user-1", "media-1"))
	require.NoError(t, f.svc.HandleText(ctx, "user-1", "a question"))

	state, err := f.memory.GetContext(ctx, "user-1")
	require.NoError(t, err)
	docPath := state.DocumentRef
	require.FileExists(t, docPath)

	require.NoError(t, f.svc.HandleButton(ctx, "user-1", constant.ButtonEnd))
	assert.Equal(t, constant.MsgSessionEnded, f.sender.last().text)
	assert.NoFileExists(t, docPath)
	assert.Empty(t, f.index.byOwner["user-1"])

	// A subsequent question is treated as having no document.
	f.sender.sent = nil
	err = f.svc.HandleText(ctx, "user-1", "still there?")
	assert.Error(t, err)
	assert.Equal(t, []string{constant.MsgNoDocument}, f.sender.texts())
}

func TestLongAnswerIsSegmented(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleDocument(ctx, "user-1", "media-1"))
	f.llm.answer = strings.Repeat("a", 9001)
	f.sender.sent = nil

	require.NoError(t, f.svc.HandleText(ctx, "user-1", "warranty details please"))

	require.GreaterOrEqual(t, len(f.sender.sent), 3)
	assert.Len(t, f.sender.sent[0].text, 4000)
	assert.Len(t, f.sender.sent[1].text, 4000)
	assert.Len(t, f.sender.sent[2].text, 1001)
}
