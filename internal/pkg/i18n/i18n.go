package i18n

import (
	"errors"

	"certhub-backend/internal/domain"

	"golang.org/x/text/language"
)

var supported = []language.Tag{language.Turkish, language.English}

var matcher = language.NewMatcher(supported)

// Lang picks "tr" or "en" from an Accept-Language header. Turkish is the default.
func Lang(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return "tr"
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return "tr"
	}
	base, _ := supported[idx].Base()
	return base.String()
}

type message struct {
	tr string
	en string
}

var messages = []struct {
	err error
	msg message
}{
	{domain.ErrInsufficientBalance, message{"Yetersiz bakiye. Lütfen bakiye yükleyin.", "Insufficient balance. Please top up your account."}},
	{domain.ErrQuotaExceeded, message{"Öğrenci kotanız doldu.", "Your student quota has been reached."}},
	{domain.ErrDuplicateKeyCollision, message{"Sertifika numarası oluşturulamadı, lütfen tekrar deneyin.", "Could not generate a certificate number, please try again."}},
	{domain.ErrForbidden, message{"Bu işlem için yetkiniz yok.", "You are not allowed to perform this action."}},
	{domain.ErrNotFound, message{"Kayıt bulunamadı.", "Record not found."}},
	{domain.ErrValidation, message{"Geçersiz istek.", "Invalid request."}},
	{domain.ErrBackgroundAssetMissing, message{"Şablon arka planı bulunamadı.", "Template background could not be found."}},
}

var fallback = message{"Sertifika oluşturulurken bir hata oluştu.", "An error occurred while issuing the certificate."}

// Message returns a user-facing text for err in lang. Validation errors keep
// their field detail appended.
func Message(err error, lang string) string {
	m := fallback
	for _, e := range messages {
		if errors.Is(err, e.err) {
			m = e.msg
			break
		}
	}
	text := m.tr
	if lang == "en" {
		text = m.en
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		text += " (" + ve.Error() + ")"
	}
	return text
}
