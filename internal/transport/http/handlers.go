package http

import (
	"context"
	"encoding/json"
	"net/http"

	"exam-service/internal/app"
	"exam-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler exposes the exam use cases as JSON over HTTP.
type Handler struct {
	service  *app.ExamService
	validate *validator.Validate
}

func NewHandler(service *app.ExamService) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

type createTestRequest struct {
	Title           string            `json:"title" validate:"required,max=200"`
	Description     string            `json:"description" validate:"max=4000"`
	GroupID         string            `json:"groupId" validate:"required"`
	DurationMinutes int               `json:"durationMinutes" validate:"required,min=1"`
	Questions       []domain.Question `json:"questions"`
}

type updateTestRequest struct {
	Title           *string            `json:"title" validate:"omitempty,max=200"`
	Description     *string            `json:"description" validate:"omitempty,max=4000"`
	DurationMinutes *int               `json:"durationMinutes"`
	Questions       *[]domain.Question `json:"questions"`
}

type replaceQuestionsRequest struct {
	Questions []domain.Question `json:"questions"`
}

// answerRequest keeps both indices nullable: a null selection is an unanswered question
// and an entry without a question index is ignored.
type answerRequest struct {
	QuestionIndex       *int `json:"questionIndex"`
	SelectedOptionIndex *int `json:"selectedOptionIndex"`
}

type submitRequest struct {
	Answers []answerRequest `json:"answers" validate:"dive"`
}

// decode reads and validates a JSON body; it writes the error response itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, err)
		return false
	}
	return true
}

func (h *Handler) CreateTest(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFrom(r.Context())
	var req createTestRequest
	if !h.decode(w, r, &req) {
		return
	}
	test, err := h.service.CreateTest(r.Context(), viewer.ID, app.CreateTestInput{
		Title:           req.Title,
		Description:     req.Description,
		GroupID:         req.GroupID,
		DurationMinutes: req.DurationMinutes,
		Questions:       req.Questions,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, test)
}

func (h *Handler) ListTests(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFrom(r.Context())
	tests, err := h.service.ListTestsForGroup(r.Context(), chi.URLParam(r, "groupID"), viewer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tests)
}

func (h *Handler) GetTest(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFrom(r.Context())
	test, err := h.service.GetTest(r.Context(), chi.URLParam(r, "testID"), viewer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, test)
}

func (h *Handler) UpdateTest(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFrom(r.Context())
	var req updateTestRequest
	if !h.decode(w, r, &req) {
		return
	}
	test, err := h.service.UpdateTest(r.Context(), chi.URLParam(r, "testID"), viewer.ID, app.UpdateTestInput{
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Questions:       req.Questions,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, test)
}

func (h *Handler) ReplaceQuestions(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFrom(r.Context())
	var req replaceQuestionsRequest
	if !h.decode(w, r, &req) {
		return
	}
	test, err := h.service.ReplaceQuestions(r.Context(), chi.URLParam(r, "testID"), viewer.ID, req.Questions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, test)
}

func (h *Handler) DeleteTest(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFrom(r.Context())
	if err := h.service.DeleteTest(r.Context(), chi.URLParam(r, "testID"), viewer.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PublishTest, StartTest and EndTest share the same shape.
func (h *Handler) PublishTest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.PublishTest)
}

func (h *Handler) StartTest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.StartTest)
}

func (h *Handler) EndTest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.EndTest)
}

type transitionFunc func(ctx context.Context, testID, adminID string) (domain.Test, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	viewer, _ := ViewerFrom(r.Context())
	test, err := fn(r.Context(), chi.URLParam(r, "testID"), viewer.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, test)
}

func (h *Handler) SubmitTest(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFrom(r.Context())
	var req submitRequest
	if !h.decode(w, r, &req) {
		return
	}
	answers := make([]domain.AnswerInput, 0, len(req.Answers))
	for _, a := range req.Answers {
		if a.QuestionIndex == nil {
			continue
		}
		selected := domain.NoSelection
		if a.SelectedOptionIndex != nil {
			selected = *a.SelectedOptionIndex
		}
		answers = append(answers, domain.AnswerInput{QuestionIndex: *a.QuestionIndex, SelectedOptionIndex: selected})
	}
	res, err := h.service.SubmitTest(r.Context(), chi.URLParam(r, "testID"), viewer.ID, answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFrom(r.Context())
	res, err := h.service.GetResults(r.Context(), chi.URLParam(r, "testID"), viewer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
