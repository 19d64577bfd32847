package content

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/report-moderation/internal/domain/repository"
	"github.com/ignatzorin/report-moderation/internal/domain/valueobject"
)

var typeNames = map[valueobject.ReportType]string{
	valueobject.ReportTypeUser:     "Пользователь",
	valueobject.ReportTypePost:     "Пост",
	valueobject.ReportTypeDocument: "Документ",
}

// StaticResolver используется при STORAGE_DRIVER=memory, когда таблиц
// платформы нет: каждый объект считается существующим, имя строится из типа и id.
type StaticResolver struct{}

func NewStaticResolver() StaticResolver {
	return StaticResolver{}
}

func (StaticResolver) Resolve(ctx context.Context, reportType valueobject.ReportType, targetID uuid.UUID) (repository.TargetInfo, error) {
	return repository.TargetInfo{
		DisplayName: typeNames[reportType] + " " + targetID.String()[:8],
		URL:         TargetURL(reportType, targetID),
	}, nil
}

func (StaticResolver) ResolveUser(ctx context.Context, userID uuid.UUID) (repository.UserInfo, error) {
	return repository.UserInfo{ID: userID, DisplayName: "user-" + userID.String()[:8]}, nil
}
