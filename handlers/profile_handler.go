package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/fair-measure/middleware"
	"github.com/Dosada05/fair-measure/services"
)

const maxAvatarSize = 5 << 20

type ProfileHandler struct {
	profileService services.ProfileService
}

func NewProfileHandler(ps services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: ps}
}

// Search godoc
// @Summary Поиск пользователей по email
// @Tags profiles
// @Description Регистронезависимый поиск по подстроке email.
// @Produce json
// @Param email query string true "Фрагмент email"
// @Param limit query int false "Максимум результатов (не больше 20)"
// @Success 200 {object} map[string]interface{} "Найденные пользователи"
// @Failure 400 {object} map[string]string "Неверные параметры"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Security BearerAuth
// @Router /profiles [get]
func (h *ProfileHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, err := readIntQuery(r, "limit", services.DefaultSearchLimit)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	users, err := h.profileService.SearchByEmail(r.Context(), r.URL.Query().Get("email"), limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"users": users}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByID godoc
// @Summary Профиль пользователя
// @Tags profiles
// @Produce json
// @Param userID path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Пользователь не найден"
// @Router /profiles/{userID} [get]
func (h *ProfileHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, err := h.profileService.GetByID(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadAvatar godoc
// @Summary Загрузить аватар текущего пользователя
// @Tags profiles
// @Accept multipart/form-data
// @Produce json
// @Param avatar formData file true "Изображение (jpeg, png, webp, gif)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Неверный файл"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 503 {object} map[string]string "Хранилище не настроено"
// @Security BearerAuth
// @Router /profiles/me/avatar [put]
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize+1024)
	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		badRequestResponse(w, r, errors.New("avatar must be a multipart upload no larger than 5MB"))
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		badRequestResponse(w, r, errors.New("avatar file is required"))
		return
	}
	defer file.Close()

	user, err := h.profileService.UploadAvatar(r.Context(), currentUserID, header.Header.Get("Content-Type"), file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
