package origination

import (
	"strings"

	"golang.org/x/text/cases"
)

// externalVocabulary maps bank status strings (already normalized) to events.
// Keys are folded once at init, so spelling here is for readability only.
var externalVocabulary = map[string]StatusEvent{}

func init() {
	vocab := map[StatusEvent][]string{
		EventBankStatusUpdate: {
			"new", "received", "registered", "in_review", "in review", "under review", "processing", "in progress",
			"новая", "принята", "зарегистрирована", "на рассмотрении", "в работе", "на проверке",
		},
		EventRequestInfo: {
			"info_requested", "info requested", "documents_requested", "documents requested", "need_documents",
			"запрос документов", "запрошены документы", "требуются документы", "доработка",
		},
		EventApprove: {
			"approved", "accepted", "approve",
			"одобрена", "одобрено", "одобрен",
		},
		EventReject: {
			"rejected", "declined", "refused", "denied",
			"отказ", "отклонена", "отказано",
		},
		EventSignedConfirmed: {
			"signed", "contract_signed", "contract signed",
			"подписана", "подписан", "договор подписан",
		},
		EventComplete: {
			"issued", "completed", "closed", "funded",
			"выдана", "выдан", "исполнена", "завершена",
		},
	}
	for event, words := range vocab {
		for _, w := range words {
			externalVocabulary[normalizeExternalStatus(w)] = event
		}
	}
}

// normalizeExternalStatus folds case, treats '_' and '-' as spaces and
// collapses runs of whitespace.
func normalizeExternalStatus(raw string) string {
	folded := cases.Fold().String(raw)
	folded = strings.NewReplacer("_", " ", "-", " ").Replace(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// MapExternalStatus translates the bank's free-text status into a status event.
// Unknown strings map to EventNone.
func MapExternalStatus(raw string) StatusEvent {
	key := normalizeExternalStatus(raw)
	if key == "" {
		return EventNone
	}
	if event, ok := externalVocabulary[key]; ok {
		return event
	}
	return EventNone
}
