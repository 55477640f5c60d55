package share

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// QRServiceURL — сервис, рисующий QR код по ссылке.
const QRServiceURL = "https://api.qrserver.com/v1/create-qr-code/"

// Размер QR кода в пикселях.
const qrSize = 400

// ErrInvalidShareLink возвращается, если ключ ссылки не разбирается
// или указывает на другой опрос.
var ErrInvalidShareLink = errors.New("invalid share link")

// Token — содержимое ключа общей ссылки.
// Ключ не защищён подписью и проверяется на клиенте только для раннего отказа,
// решение о доступе принимает сервер.
type Token struct {
	SurveyID int
	Nonce    string
}

type tokenPayload struct {
	ID   json.RawMessage `json:"id"`
	UUID string          `json:"uuid"`
}

// Mint создаёт новый ключ общей ссылки для опроса surveyID.
func Mint(surveyID int) string {
	data, _ := json.Marshal(struct {
		ID   int    `json:"id"`
		UUID string `json:"uuid"`
	}{
		ID:   surveyID,
		UUID: uuid.NewString(),
	})

	return base64.StdEncoding.EncodeToString(data)
}

// Decode разбирает ключ. Принимает обычный и URL-safe base64,
// с выравниванием и без, и id как числом, так и строкой.
func Decode(token string) (*Token, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidShareLink)
	}

	data, err := decodeBase64(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShareLink, err)
	}

	var payload tokenPayload
	if err = json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShareLink, err)
	}

	id, err := strconv.Atoi(strings.Trim(string(payload.ID), `"`))
	if err != nil {
		return nil, fmt.Errorf("%w: bad survey id", ErrInvalidShareLink)
	}

	return &Token{SurveyID: id, Nonce: payload.UUID}, nil
}

// Verify проверяет, что ключ относится к опросу surveyID.
func Verify(token string, surveyID int) error {
	decoded, err := Decode(token)
	if err != nil {
		return err
	}

	if decoded.SurveyID != surveyID {
		return fmt.Errorf("%w: token is for survey %d, not %d", ErrInvalidShareLink, decoded.SurveyID, surveyID)
	}

	return nil
}

// Link собирает ссылку на опрос: <origin>/survey/{id}?share=<token>.
func Link(origin string, surveyID int, token string) string {
	link := strings.TrimRight(origin, "/") + "/survey/" + strconv.Itoa(surveyID)
	if token == "" {
		return link
	}

	return link + "?share=" + url.QueryEscape(token)
}

// QRImageURL возвращает адрес картинки QR кода во внешнем сервисе.
func QRImageURL(link string) string {
	size := strconv.Itoa(qrSize)

	return QRServiceURL + "?size=" + size + "x" + size + "&data=" + url.QueryEscape(link)
}

// QRCode рисует QR код ссылки в PNG.
func QRCode(link string) ([]byte, error) {
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}

	return png, nil
}

func decodeBase64(token string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}

	var firstErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(token)
		if err == nil {
			return data, nil
		}

		if firstErr == nil {
			firstErr = err
		}
	}

	return nil, firstErr
}
