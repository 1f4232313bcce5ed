package service

import (
	"context"
	"time"

	"certo/internal/credential/models"
)

// BatchInput carries a batch issuance request: one achievement issued to
// many recipients.
type BatchInput struct {
	AchievementID  int64
	IssuerID       int64
	Recipients     []models.RecipientInput
	Name           string
	Description    string
	ExpirationDate *time.Time
}

// BatchIssue issues the achievement to each recipient in order. Failures
// are isolated: one bad recipient yields a failed item and the batch
// continues. Results preserve request order.
func (s *Service) BatchIssue(ctx context.Context, in BatchInput) []models.BatchItem {
	items := make([]models.BatchItem, 0, len(in.Recipients))
	for _, recipient := range in.Recipients {
		result, err := s.Issue(ctx, IssueInput{
			AchievementID:  in.AchievementID,
			IssuerID:       in.IssuerID,
			Recipient:      recipient,
			Name:           in.Name,
			Description:    in.Description,
			ExpirationDate: in.ExpirationDate,
		})
		if err != nil {
			items = append(items, models.BatchItem{
				Recipient: recipient.Email,
				Error:     err.Error(),
			})
			continue
		}
		document := result.Document
		items = append(items, models.BatchItem{
			Success:   true,
			Recipient: recipient.Email,
			Data:      &document,
		})
	}
	return items
}
