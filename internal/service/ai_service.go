package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"exam_eval_backend/internal/config"
	"exam_eval_backend/internal/model"
	"exam_eval_backend/internal/util"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// FileFetcher reads back a stored document by its persisted URL.
type FileFetcher interface {
	Fetch(ctx context.Context, fileURL string) ([]byte, error)
}

// AIService talks to an OpenAI-compatible chat-completions API that scores a
// student's answer sheet against the teacher's key. The provider's OCR and
// grading logic is a black box; this client only owns the request shape, a
// bounded timeout, and strict parsing of the returned verdict. Documents are
// embedded as base64 data URLs because the stored URLs are not reachable from
// the provider's side.
type AIService struct {
	config config.AIConfig
	files  FileFetcher
	client *http.Client
}

func NewAIService(cfg config.AIConfig, files FileFetcher) *AIService {
	return &AIService{
		config: cfg,
		files:  files,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

// Ready reports whether an API key is configured. Absence is a startup
// warning, not a hard failure; evaluation calls fail at call time instead.
func (s *AIService) Ready() bool {
	return s.config.APIKey != ""
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ChatMessage struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

type ChatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// EvaluationResult is the verdict the model must return as a JSON object.
type EvaluationResult struct {
	MarksObtained float64 `json:"marks_obtained"`
	Feedback      string  `json:"feedback"`
}

const examinerPrompt = "You are a strict but fair examiner. You are given a teacher's answer key " +
	"followed by the pages of one student's answer sheet. Compare the student's answers " +
	"against the key and award marks out of the stated total. Respond with ONLY a JSON " +
	"object of the form {\"marks_obtained\": <number>, \"feedback\": \"<short feedback for the student>\"} " +
	"and nothing else."

// EvaluateAnswerSheet sends the key document and every submitted page to the
// model and parses the returned mark and feedback. All failures (transport,
// provider error, unparseable verdict) surface as errors; the caller decides
// what that means for submission state.
func (s *AIService) EvaluateAnswerSheet(ctx context.Context, key *model.AnswerKey, sub *model.Submission) (*EvaluationResult, error) {
	if !s.Ready() {
		return nil, fmt.Errorf("AI API key is not configured")
	}

	keyData, err := s.dataURL(ctx, key.FileURL)
	if err != nil {
		return nil, fmt.Errorf("reading answer key document: %w", err)
	}

	parts := []ContentPart{
		{
			Type: "text",
			Text: fmt.Sprintf(
				"Exam: %s\nSubject: %s\nTotal marks: %d\nKey type: %s\nAnswer sheet type: %s\n\n"+
					"The first document is the answer key; the remaining %d page(s) are the student's answer sheet.",
				key.ExamName, key.Subject, key.TotalMarks, key.KeyType, sub.AnswerSheetType, len(sub.FileURLs),
			),
		},
		{Type: "image_url", ImageURL: &ImageURL{URL: keyData}},
	}
	for _, u := range sub.FileURLs {
		pageData, err := s.dataURL(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("reading answer sheet page: %w", err)
		}
		parts = append(parts, ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: pageData}})
	}

	reqBody := ChatCompletionRequest{
		Model: s.config.Model,
		Messages: []ChatMessage{
			{Role: "system", Content: []ContentPart{{Type: "text", Text: examinerPrompt}}},
			{Role: "user", Content: parts},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("malformed AI API response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("AI API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("AI returned no choices")
	}

	return parseVerdict(result.Choices[0].Message.Content)
}

// dataURL reads a stored document and embeds it as a base64 data URL the
// provider can decode without fetching anything.
func (s *AIService) dataURL(ctx context.Context, fileURL string) (string, error) {
	data, err := s.files.Fetch(ctx, fileURL)
	if err != nil {
		return "", err
	}
	return "data:" + util.ContentTypeByExt(fileURL) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// parseVerdict extracts the JSON verdict from the model output, tolerating a
// surrounding markdown code fence.
func parseVerdict(content string) (*EvaluationResult, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	var verdict EvaluationResult
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return nil, fmt.Errorf("unparseable evaluation verdict: %w", err)
	}
	return &verdict, nil
}
