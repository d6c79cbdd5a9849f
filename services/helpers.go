package services

import (
	"context"
	"io"
	"log/slog"

	"github.com/Dosada05/fair-measure/models"
	"github.com/Dosada05/fair-measure/repositories"
	"github.com/Dosada05/fair-measure/storage"
)

// TxRunner выполняет fn в транзакции БД. В main оборачивает db.InTx.
type TxRunner func(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return discardLogger()
	}
	return logger
}

// populateUserAvatarURL заполняет публичный URL аватара по ключу объекта.
func populateUserAvatarURL(user *models.User, uploader storage.FileUploader) {
	if user == nil {
		return
	}
	user.AvatarURL = nil
	if uploader == nil || user.AvatarKey == nil || *user.AvatarKey == "" {
		return
	}
	url := uploader.GetPublicURL(*user.AvatarKey)
	user.AvatarURL = &url
}

func populateMembersAvatarURLs(members []*models.Member, uploader storage.FileUploader) {
	for _, m := range members {
		if m != nil {
			populateUserAvatarURL(m.User, uploader)
		}
	}
}
