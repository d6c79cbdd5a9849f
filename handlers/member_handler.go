package handlers

import (
	"net/http"

	"github.com/Dosada05/fair-measure/middleware"
	"github.com/Dosada05/fair-measure/services"
)

type MemberHandler struct {
	memberService services.MemberService
}

func NewMemberHandler(ms services.MemberService) *MemberHandler {
	return &MemberHandler{memberService: ms}
}

// ListByCompetition godoc
// @Summary Состав соревнования
// @Tags members
// @Description Участники в порядке вступления, с данными пользователей.
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Соревнование не найдено"
// @Router /competitions/{competitionID}/members [get]
func (h *MemberHandler) ListByCompetition(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	members, err := h.memberService.ListByCompetition(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"members": members}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Add godoc
// @Summary Добавить участника
// @Tags members
// @Description Только владелец соревнования. Роль всегда member.
// @Accept json
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Param input body services.AddMemberInput true "Пользователь и роль"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Не владелец"
// @Failure 404 {object} map[string]string "Соревнование или пользователь не найден"
// @Failure 409 {object} map[string]string "Пользователь уже участник"
// @Security BearerAuth
// @Router /competitions/{competitionID}/members [post]
func (h *MemberHandler) Add(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.AddMemberInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	member, err := h.memberService.Add(r.Context(), currentUserID, competitionID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"member": member}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Remove godoc
// @Summary Удалить участника
// @Tags members
// @Description Только владелец соревнования. Запись владельца удалить нельзя.
// @Param memberID path string true "Member ID"
// @Success 204 "Участник удален"
// @Failure 400 {object} map[string]string "Попытка удалить владельца"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Не владелец"
// @Failure 404 {object} map[string]string "Участник не найден"
// @Security BearerAuth
// @Router /members/{memberID} [delete]
func (h *MemberHandler) Remove(w http.ResponseWriter, r *http.Request) {
	memberID, err := getIDFromURL(r, "memberID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := h.memberService.Remove(r.Context(), currentUserID, memberID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListByUser godoc
// @Summary Членства пользователя
// @Tags members
// @Produce json
// @Param userID path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Router /members/user/{userID} [get]
func (h *MemberHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	members, err := h.memberService.ListByUser(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"members": members}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Check godoc
// @Summary Проверить членство пользователя
// @Tags members
// @Produce json
// @Param competitionID path string true "Competition ID"
// @Param userID path string true "User ID"
// @Success 200 {object} models.MembershipCheck
// @Router /members/check/{competitionID}/{userID} [get]
func (h *MemberHandler) Check(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	check, err := h.memberService.Check(r.Context(), competitionID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, check, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
