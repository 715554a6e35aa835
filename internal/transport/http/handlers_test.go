package httptransport_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"machinelaw/internal/engine"
	jwttoken "machinelaw/internal/jwt_token"
	"machinelaw/internal/machine"
	"machinelaw/internal/tracking"
	httptransport "machinelaw/internal/transport/http"
	"machinelaw/internal/transport/http/mocks"
)

// validBSN passes the elfproef; the raw value must never appear in responses
// beyond the caller's own request echo.
const validBSN = "111222333"

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockMachineService
	server  *httptest.Server
	token   string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockMachineService(s.ctrl)

	jwtService := jwttoken.NewJWTService("test-signing-key", "machinelaw", "machinelaw-api")
	token, err := jwtService.GenerateAccessToken(uuid.New(), uuid.New(), "TOESLAGEN", time.Hour)
	s.Require().NoError(err)
	s.token = token

	handler := httptransport.NewHandler(s.service, nil)
	router := httptransport.NewRouter(handler, jwttoken.NewJWTServiceAdapter(jwtService), slog.New(slog.DiscardHandler))
	s.server = httptest.NewServer(router)
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
	s.ctrl.Finish()
}

func (s *HandlerSuite) request(method, path string, body any, authenticated bool) *http.Response {
	s.T().Helper()
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *HandlerSuite) decodeBody(resp *http.Response, out any) {
	s.T().Helper()
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
}

func (s *HandlerSuite) TestHealthIsPublic() {
	resp := s.request(http.MethodGet, "/healthz", nil, false)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *HandlerSuite) TestMetricsIsPublic() {
	resp := s.request(http.MethodGet, "/metrics", nil, false)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *HandlerSuite) TestV1RequiresToken() {
	resp := s.request(http.MethodGet, "/v1/laws", nil, false)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlerSuite) TestV1RejectsExpiredToken() {
	expired := jwttoken.NewJWTService("test-signing-key", "machinelaw", "machinelaw-api")
	token, err := expired.GenerateAccessToken(uuid.New(), uuid.New(), "TOESLAGEN", -time.Hour)
	s.Require().NoError(err)

	req, err := http.NewRequest(http.MethodGet, s.server.URL+"/v1/laws", nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlerSuite) TestRequestIDEchoed() {
	resp := s.request(http.MethodGet, "/healthz", nil, false)
	defer resp.Body.Close()
	s.NotEmpty(resp.Header.Get("X-Request-Id"))
}

func (s *HandlerSuite) TestEvaluate() {
	s.service.EXPECT().
		EvaluateLaw(gomock.Any(), machine.EvaluateRequest{
			Law:    "zorgtoeslagwet",
			Params: map[string]any{"BSN": validBSN, "reference_date": "2025-06-01"},
		}).
		Return(&engine.EvaluationResult{
			Output:          map[string]any{"is_gerechtigd": true},
			RequirementsMet: true,
			Errors:          []string{},
		}, nil)

	resp := s.request(http.MethodPost, "/v1/laws/evaluate", map[string]any{
		"law":        "zorgtoeslagwet",
		"parameters": map[string]any{"BSN": validBSN, "reference_date": "2025-06-01"},
	}, true)
	s.Equal(http.StatusOK, resp.StatusCode)

	var result engine.EvaluationResult
	s.decodeBody(resp, &result)
	s.Equal(true, result.Output["is_gerechtigd"])
	s.True(result.RequirementsMet)
}

func (s *HandlerSuite) TestEvaluateUnknownLaw() {
	s.service.EXPECT().
		EvaluateLaw(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: bestaat_niet", machine.ErrUnknownLaw))

	resp := s.request(http.MethodPost, "/v1/laws/evaluate", map[string]any{
		"law": "bestaat_niet",
	}, true)
	s.Equal(http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	s.decodeBody(resp, &body)
	s.Equal("unknown_law", body["error"])
}

func (s *HandlerSuite) TestEvaluateRejectsMissingLaw() {
	resp := s.request(http.MethodPost, "/v1/laws/evaluate", map[string]any{
		"parameters": map[string]any{},
	}, true)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *HandlerSuite) TestProfileScan() {
	s.service.EXPECT().
		ProfileScan(gomock.Any(), validBSN, gomock.Any()).
		Return(&machine.ScanResult{
			SessionID:  "session_20250601_120000_aaaa0001",
			Results:    []machine.LawResult{},
			Eliminated: []machine.EliminatedLaw{{Law: "aow", Service: "SVB", Reason: tracking.ReasonAgeFilter}},
			Session:    tracking.SessionMetrics{LawsTotal: 1, LawsEliminated: 1, EliminationRate: 100},
		}, nil)

	resp := s.request(http.MethodPost, "/v1/profile/scan", map[string]any{
		"bsn": validBSN,
	}, true)
	s.Equal(http.StatusOK, resp.StatusCode)

	var result machine.ScanResult
	s.decodeBody(resp, &result)
	s.Equal("session_20250601_120000_aaaa0001", result.SessionID)
	s.Len(result.Eliminated, 1)
}

func (s *HandlerSuite) TestProfileScanRejectsInvalidBSN() {
	for _, bsn := range []string{"", "12345", "abcdefghi", "123456789"} {
		resp := s.request(http.MethodPost, "/v1/profile/scan", map[string]any{
			"bsn": bsn,
		}, true)
		resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode, "bsn %q", bsn)
	}
}

func (s *HandlerSuite) TestDelegationCheck() {
	s.service.EXPECT().
		CanActOnBehalf(gomock.Any(), validBSN, "999000111", gomock.Any()).
		Return(true, nil)

	resp := s.request(http.MethodPost, "/v1/delegations/check", map[string]any{
		"bsn":        validBSN,
		"subject_id": "999000111",
	}, true)
	s.Equal(http.StatusOK, resp.StatusCode)

	var body map[string]any
	s.decodeBody(resp, &body)
	s.Equal(true, body["can_act_on_behalf"])
}

func (s *HandlerSuite) TestLaws() {
	s.service.EXPECT().
		Laws(gomock.Any()).
		Return([]machine.LawInfo{{Name: "zorgtoeslagwet", Service: "TOESLAGEN", MaxSensitivity: 5}})

	resp := s.request(http.MethodGet, "/v1/laws", nil, true)
	s.Equal(http.StatusOK, resp.StatusCode)

	var body struct {
		Laws []machine.LawInfo `json:"laws"`
	}
	s.decodeBody(resp, &body)
	s.Require().Len(body.Laws, 1)
	s.Equal("zorgtoeslagwet", body.Laws[0].Name)
}

func (s *HandlerSuite) TestMinimizationExport() {
	s.service.EXPECT().
		MinimizationExport(gomock.Any(), 7).
		Return(map[string]any{"historical_sessions": []any{}}, nil)

	resp := s.request(http.MethodGet, "/v1/metrics/minimization?days_back=7", nil, true)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *HandlerSuite) TestMinimizationExportRejectsBadWindow() {
	resp := s.request(http.MethodGet, "/v1/metrics/minimization?days_back=zero", nil, true)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}
