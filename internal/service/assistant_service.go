package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"regexp"
	"strings"
	"sync"

	"pdf-assistant-be/internal/apperr"
	"pdf-assistant-be/internal/constant"
	"pdf-assistant-be/internal/pkg/logger"
	"pdf-assistant-be/pkg/chunker"
	"pdf-assistant-be/pkg/llm"
	"pdf-assistant-be/pkg/parser"
	"pdf-assistant-be/pkg/rag/history"
	"pdf-assistant-be/pkg/rag/prompt"
	"pdf-assistant-be/pkg/rag/response"
	"pdf-assistant-be/pkg/rag/retrieve"
	"pdf-assistant-be/pkg/store"
	"pdf-assistant-be/pkg/vectorindex"
	"pdf-assistant-be/pkg/whatsapp"
)

var greetingPattern = regexp.MustCompile(`(?i)^(hi|hello|hey)$`)

// IAssistantService handles one inbound messaging event per call. Every path
// ends in a user-visible reply; returned errors are for logging only.
type IAssistantService interface {
	HandleText(ctx context.Context, user string, text string) error
	HandleDocument(ctx context.Context, user string, mediaID string) error
	HandleButton(ctx context.Context, user string, buttonID string) error
}

type assistantService struct {
	docParser   parser.DocumentParser
	index       vectorindex.Index
	retriever   *retrieve.Retriever
	memory      *history.Memory
	llmProvider llm.Provider
	sender      whatsapp.Sender
	media       whatsapp.MediaFetcher
	log         logger.ILogger
	uploadsDir  string

	// Per-user serialization: concurrent events for the same user (upload
	// racing a question, double upload) run one at a time. Striped so the
	// lock table stays bounded regardless of how many users appear; a
	// collision only serializes two users that could have run in parallel.
	locks [lockStripes]sync.Mutex
}

func NewAssistantService(
	docParser parser.DocumentParser,
	index vectorindex.Index,
	retriever *retrieve.Retriever,
	memory *history.Memory,
	llmProvider llm.Provider,
	sender whatsapp.Sender,
	media whatsapp.MediaFetcher,
	log logger.ILogger,
	uploadsDir string,
) IAssistantService {
	return &assistantService{
		docParser:   docParser,
		index:       index,
		retriever:   retriever,
		memory:      memory,
		llmProvider: llmProvider,
		sender:      sender,
		media:       media,
		log:         log,
		uploadsDir:  uploadsDir,
	}
}

const lockStripes = 64

func (s *assistantService) lockUser(user string) func() {
	h := fnv.New32a()
	h.Write([]byte(user))
	mu := &s.locks[h.Sum32()%lockStripes]

	mu.Lock()
	return mu.Unlock
}

func (s *assistantService) HandleText(ctx context.Context, user string, text string) error {
	defer s.lockUser(user)()

	text = strings.TrimSpace(text)
	if greetingPattern.MatchString(text) {
		return s.sender.SendText(ctx, user, constant.MsgGreeting)
	}
	return s.answerQuestion(ctx, user, text)
}

func (s *assistantService) HandleDocument(ctx context.Context, user string, mediaID string) error {
	defer s.lockUser(user)()

	if err := s.sender.SendText(ctx, user, constant.MsgParsing); err != nil {
		return err
	}

	path, err := s.media.DownloadMedia(ctx, mediaID, s.uploadsDir)
	if err != nil {
		s.log.Error("assistant", "document download failed", map[string]interface{}{
			"user": user, "media_id": mediaID, "error": err.Error(),
		})
		s.sender.SendText(ctx, user, constant.MsgParseFailed)
		return fmt.Errorf("%w: %v", apperr.ErrParseFailure, err)
	}

	pages, err := s.docParser.Parse(ctx, path)
	if err != nil {
		s.log.Error("assistant", "document parse failed", map[string]interface{}{
			"user": user, "path": path, "error": err.Error(),
		})
		os.Remove(path)
		s.sender.SendText(ctx, user, constant.MsgParseFailed)
		return fmt.Errorf("%w: %v", apperr.ErrParseFailure, err)
	}

	passages := chunker.BuildPassages(pages)
	if err := s.index.Replace(ctx, user, passages); err != nil {
		s.log.Error("assistant", "document indexing failed", map[string]interface{}{
			"user": user, "passages": len(passages), "error": err.Error(),
		})
		os.Remove(path)
		s.sender.SendText(ctx, user, constant.MsgIndexingFailed)
		return fmt.Errorf("%w: %v", apperr.ErrIndexingFailure, err)
	}

	prev, err := s.memory.GetContext(ctx, user)
	if err != nil {
		s.log.Warn("assistant", "context read failed after indexing", map[string]interface{}{
			"user": user, "error": err.Error(),
		})
	}
	// The replaced upload's file is no longer referenced by anything.
	if prev.DocumentRef != "" && prev.DocumentRef != path {
		os.Remove(prev.DocumentRef)
	}

	state := store.SessionState{
		HasDocument: true,
		Mode:        store.ModeIdle,
		QueryCount:  0,
		DocumentRef: path,
	}
	if err := s.memory.SetContext(ctx, user, state); err != nil {
		s.sender.SendText(ctx, user, constant.MsgIndexingFailed)
		return fmt.Errorf("%w: %v", apperr.ErrIndexingFailure, err)
	}

	return s.sender.SendButtons(ctx, user, constant.MsgIndexed, whatsapp.ButtonsStart)
}

func (s *assistantService) HandleButton(ctx context.Context, user string, buttonID string) error {
	defer s.lockUser(user)()

	switch buttonID {
	case constant.ButtonSummary:
		return s.summarize(ctx, user)
	case constant.ButtonQuery:
		return s.enterQueryMode(ctx, user)
	case constant.ButtonEnd:
		return s.endSession(ctx, user)
	default:
		s.log.Warn("assistant", "unknown button id", map[string]interface{}{
			"user": user, "button_id": buttonID,
		})
		return nil
	}
}

func (s *assistantService) answerQuestion(ctx context.Context, user string, question string) error {
	state, err := s.memory.GetContext(ctx, user)
	if err != nil {
		s.sender.SendText(ctx, user, constant.MsgGenerationFailed)
		return err
	}
	if !state.HasDocument {
		s.sender.SendText(ctx, user, constant.MsgNoDocument)
		return apperr.ErrNoDocumentYet
	}

	contents, err := s.retriever.Retrieve(ctx, user, question)
	if err != nil {
		s.log.Error("assistant", "retrieval failed", map[string]interface{}{
			"user": user, "error": err.Error(),
		})
		s.sender.SendText(ctx, user, constant.MsgGenerationFailed)
		return err
	}

	grounding := strings.Join(contents, "\n\n")
	turns, err := s.memory.GetHistory(ctx, user)
	if err != nil {
		s.sender.SendText(ctx, user, constant.MsgGenerationFailed)
		return err
	}

	answer, err := s.llmProvider.Generate(ctx, prompt.NewBuilder(turns, grounding, question).Build())
	if err != nil {
		s.log.Error("assistant", "generation failed", map[string]interface{}{
			"user": user, "error": err.Error(),
		})
		s.sender.SendText(ctx, user, constant.MsgGenerationFailed)
		return err
	}
	answer = strings.TrimSpace(answer)

	if err := s.sendSegmented(ctx, user, answer); err != nil {
		return err
	}

	if err := s.memory.AppendTurn(ctx, user, question, answer); err != nil {
		s.log.Warn("assistant", "history append failed", map[string]interface{}{
			"user": user, "error": err.Error(),
		})
	}

	state.QueryCount++
	if err := s.memory.SetContext(ctx, user, state); err != nil {
		s.log.Warn("assistant", "context update failed", map[string]interface{}{
			"user": user, "error": err.Error(),
		})
	}

	if state.QueryCount%constant.ContinueButtonsEvery == 0 {
		return s.sender.SendButtons(ctx, user, constant.MsgWhatNext, whatsapp.ButtonsContinue)
	}
	return nil
}

func (s *assistantService) summarize(ctx context.Context, user string) error {
	state, err := s.memory.GetContext(ctx, user)
	if err != nil {
		s.sender.SendText(ctx, user, constant.MsgGenerationFailed)
		return err
	}
	if !state.HasDocument {
		s.sender.SendText(ctx, user, constant.MsgNoDocument)
		return apperr.ErrNoDocumentYet
	}

	grounding := state.LastSummary
	if grounding == "" {
		passages, err := s.index.AllFor(ctx, user)
		if err != nil {
			s.log.Error("assistant", "summary passage load failed", map[string]interface{}{
				"user": user, "error": err.Error(),
			})
			s.sender.SendText(ctx, user, constant.MsgGenerationFailed)
			return err
		}
		contents := make([]string, 0, len(passages))
		for _, p := range passages {
			contents = append(contents, p.Content)
		}
		grounding = strings.Join(contents, "\n\n")
	}

	turns, err := s.memory.GetHistory(ctx, user)
	if err != nil {
		s.sender.SendText(ctx, user, constant.MsgGenerationFailed)
		return err
	}

	answer, err := s.llmProvider.Generate(ctx, prompt.NewBuilder(turns, grounding, constant.SummaryQuestion).Build())
	if err != nil {
		s.log.Error("assistant", "summary generation failed", map[string]interface{}{
			"user": user, "error": err.Error(),
		})
		s.sender.SendText(ctx, user, constant.MsgGenerationFailed)
		return err
	}
	answer = strings.TrimSpace(answer)

	if err := s.sendSegmented(ctx, user, answer); err != nil {
		return err
	}

	if err := s.memory.AppendTurn(ctx, user, constant.SummaryHistoryLabel, answer); err != nil {
		s.log.Warn("assistant", "history append failed", map[string]interface{}{
			"user": user, "error": err.Error(),
		})
	}

	state.LastSummary = answer
	return s.memory.SetContext(ctx, user, state)
}

func (s *assistantService) enterQueryMode(ctx context.Context, user string) error {
	state, err := s.memory.GetContext(ctx, user)
	if err != nil {
		return err
	}
	state.Mode = store.ModeQuerying
	if err := s.memory.SetContext(ctx, user, state); err != nil {
		return err
	}
	return s.sender.SendText(ctx, user, constant.MsgAskQuestion)
}

func (s *assistantService) endSession(ctx context.Context, user string) error {
	// Indexed passages are owned by the session and must not outlive it.
	if err := s.index.Delete(ctx, user); err != nil {
		s.log.Error("assistant", "passage delete failed", map[string]interface{}{
			"user": user, "error": err.Error(),
		})
	}
	if err := s.memory.ClearContext(ctx, user); err != nil {
		s.log.Error("assistant", "session clear failed", map[string]interface{}{
			"user": user, "error": err.Error(),
		})
	}
	return s.sender.SendText(ctx, user, constant.MsgSessionEnded)
}

func (s *assistantService) sendSegmented(ctx context.Context, user string, answer string) error {
	for _, segment := range response.Segment(answer) {
		if err := s.sender.SendText(ctx, user, segment); err != nil {
			return err
		}
	}
	return nil
}
