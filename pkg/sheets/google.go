package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultSheetsURL = "https://sheets.googleapis.com/v4"
	defaultDriveURL  = "https://www.googleapis.com/drive/v3"

	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
)

// Scopes are the OAuth scopes requested for service-account credentials.
var Scopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/drive.readonly",
}

// APIError is returned for any non-2xx response from Google.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sheets: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// GoogleOption configures the Google backend.
type GoogleOption func(*GoogleStore)

// WithSheetsURL overrides the Sheets API base URL.
func WithSheetsURL(u string) GoogleOption {
	return func(g *GoogleStore) {
		g.sheetsURL = u
	}
}

// WithDriveURL overrides the Drive API base URL.
func WithDriveURL(u string) GoogleOption {
	return func(g *GoogleStore) {
		g.driveURL = u
	}
}

// GoogleStore implements Store against the Google Sheets and Drive REST APIs.
type GoogleStore struct {
	http      *http.Client
	sheetsURL string
	driveURL  string
}

var _ Store = (*GoogleStore)(nil)

// NewGoogle creates a Google backend using an already authorized client.
func NewGoogle(hc *http.Client, opts ...GoogleOption) *GoogleStore {
	g := &GoogleStore{
		http:      hc,
		sheetsURL: defaultSheetsURL,
		driveURL:  defaultDriveURL,
	}
	if g.http == nil {
		g.http = &http.Client{Timeout: 60 * time.Second}
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// NewGoogleFromCredentials reads a service-account JSON key file and returns
// a backend whose requests carry OAuth tokens for Scopes.
func NewGoogleFromCredentials(ctx context.Context, path string, opts ...GoogleOption) (*GoogleStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sheets: read credentials %s", path)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, Scopes...)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: parse credentials")
	}
	hc := oauth2.NewClient(ctx, creds.TokenSource)
	hc.Timeout = 60 * time.Second
	return NewGoogle(hc, opts...), nil
}

// BatchGet implements Store.
func (g *GoogleStore) BatchGet(ctx context.Context, spreadsheetID string, ranges []string) ([]ValueRange, error) {
	params := url.Values{
		"majorDimension":    {"ROWS"},
		"valueRenderOption": {"FORMATTED_VALUE"},
	}
	for _, r := range ranges {
		params.Add("ranges", r)
	}
	endpoint := g.sheetsURL + "/spreadsheets/" + url.PathEscape(spreadsheetID) + "/values:batchGet"

	body, err := g.do(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	got := gjson.GetBytes(body, "valueRanges").Array()
	out := make([]ValueRange, len(ranges))
	for i := range ranges {
		out[i].Range = ranges[i]
		if i >= len(got) {
			continue
		}
		if r := got[i].Get("range").String(); r != "" {
			out[i].Range = r
		}
		for _, row := range got[i].Get("values").Array() {
			var cells []string
			for _, cell := range row.Array() {
				cells = append(cells, cell.String())
			}
			out[i].Values = append(out[i].Values, cells)
		}
	}
	return out, nil
}

type batchUpdateRequest struct {
	ValueInputOption string            `json:"valueInputOption"`
	Data             []batchUpdateData `json:"data"`
}

type batchUpdateData struct {
	Range          string     `json:"range"`
	MajorDimension string     `json:"majorDimension"`
	Values         [][]string `json:"values"`
}

// BatchUpdate implements Store.
func (g *GoogleStore) BatchUpdate(ctx context.Context, spreadsheetID string, data []ValueRange) error {
	req := batchUpdateRequest{ValueInputOption: "RAW"}
	for _, d := range data {
		req.Data = append(req.Data, batchUpdateData{Range: d.Range, MajorDimension: "ROWS", Values: d.Values})
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return eris.Wrap(err, "sheets: marshal batch update")
	}
	endpoint := g.sheetsURL + "/spreadsheets/" + url.PathEscape(spreadsheetID) + "/values:batchUpdate"
	_, err = g.do(ctx, http.MethodPost, endpoint, payload)
	return err
}

// FindSpreadsheet implements Store by querying Drive for a spreadsheet with
// an exact name match.
func (g *GoogleStore) FindSpreadsheet(ctx context.Context, name string) (string, error) {
	q := "name = '" + strings.ReplaceAll(name, "'", `\'`) + "' and mimeType = '" + spreadsheetMimeType + "' and trashed = false"
	params := url.Values{
		"q":        {q},
		"fields":   {"files(id,name)"},
		"pageSize": {"10"},
	}
	body, err := g.do(ctx, http.MethodGet, g.driveURL+"/files?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	id := gjson.GetBytes(body, "files.0.id").String()
	if id == "" {
		return "", eris.Wrapf(ErrNotFound, "spreadsheet %q", name)
	}
	return id, nil
}

func (g *GoogleStore) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: create request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		u := endpoint
		if i := strings.IndexByte(u, '?'); i >= 0 {
			u = u[:i]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, URL: u, Body: string(body)}
	}
	return body, nil
}
