package handlers

import (
	"net/http"

	"github.com/Dosada05/fair-measure/middleware"
	"github.com/Dosada05/fair-measure/models"
	"github.com/Dosada05/fair-measure/services"
)

type CompetitionHandler struct {
	competitionService services.CompetitionService
}

func NewCompetitionHandler(cs services.CompetitionService) *CompetitionHandler {
	return &CompetitionHandler{competitionService: cs}
}

// Create godoc
// @Summary Создать соревнование
// @Tags competitions
// @Description Текущий пользователь становится владельцем соревнования.
// @Accept json
// @Produce json
// @Param input body services.CreateCompetitionInput true "Параметры соревнования"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Security BearerAuth
// @Router /competitions [post]
func (h *CompetitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.CreateCompetitionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	competition, err := h.competitionService.Create(r.Context(), currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"competition": competition}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List godoc
// @Summary Список соревнований
// @Tags competitions
// @Produce json
// @Param filter query string false "all | owned | member"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Неизвестный фильтр"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Security BearerAuth
// @Router /competitions [get]
func (h *CompetitionHandler) List(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	filter := models.CompetitionFilter(r.URL.Query().Get("filter"))
	competitions, err := h.competitionService.List(r.Context(), currentUserID, filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"competitions": competitions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByID godoc
// @Summary Соревнование по ID
// @Tags competitions
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Соревнование не найдено"
// @Router /competitions/{competitionID} [get]
func (h *CompetitionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	competition, err := h.competitionService.GetByID(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"competition": competition}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
