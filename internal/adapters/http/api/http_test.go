package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/twobeats/worldcup/internal/adapters/http/api"
	"github.com/twobeats/worldcup/internal/domain/model"
	"github.com/twobeats/worldcup/internal/domain/types"
	"github.com/twobeats/worldcup/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const testSecret = "test-secret"

var issuedAt = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

type mockDependencies struct {
	mu        sync.Mutex
	issueErr  error
	submitErr error
	submitted []model.TournamentResult
	lastSize  int
	lastFilt  model.Filter
	ranking   []types.Standing
	stats     map[model.CandidateID]model.CandidateStats
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{stats: map[model.CandidateID]model.CandidateStats{}}
}

func specOf4() model.BracketSpec {
	return model.BracketSpec{
		ID:    "c7b1a3c2-2f7e-4f43-9a1d-1f0e2d3c4b5a",
		Size:  4,
		Slots: []model.CandidateID{11, 12, 13, 14},
		Candidates: []model.Candidate{
			{ID: 11, Title: "Ditto", Artist: "NewJeans", Genre: model.GenrePop},
			{ID: 12, Title: "봄날", Artist: "BTS", Genre: model.GenreBallad},
			{ID: 13, Title: "Love Dive", Artist: "IVE", Genre: model.GenreDance},
			{ID: 14, Title: "TOMBOY", Artist: "(G)I-DLE", Genre: model.GenreRock, ThumbnailURL: "/thumbs/14.jpg"},
		},
		IssuedAt: issuedAt,
	}
}

func (m *mockDependencies) IssueBracket(_ context.Context, f model.Filter, size int) (model.IssuedBracket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSize, m.lastFilt = size, f
	if m.issueErr != nil {
		return model.IssuedBracket{}, m.issueErr
	}
	return model.IssuedBracket{Spec: specOf4(), ExpiresAt: issuedAt.Add(30 * time.Minute)}, nil
}

func (m *mockDependencies) GetBracket(_ context.Context, id string) (model.BracketSpec, error) {
	if id != specOf4().ID {
		return model.BracketSpec{}, fmt.Errorf("bracket %s: %w", id, model.ErrBracketMismatch)
	}
	return specOf4(), nil
}

func (m *mockDependencies) SubmitResult(_ context.Context, r model.TournamentResult) (model.CommitOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return model.CommitOutcome{}, m.submitErr
	}
	m.submitted = append(m.submitted, r)
	champion, _ := r.Champion()
	return model.CommitOutcome{BracketID: r.BracketID, Champion: champion, Candidates: r.CandidateIDs()}, nil
}

func (m *mockDependencies) Ranking(_ context.Context, limit int) ([]types.Standing, error) {
	if limit < 1 || limit > 50 {
		return nil, fmt.Errorf("limit: %w", model.ErrInvalidInput)
	}
	if limit > len(m.ranking) {
		return m.ranking, nil
	}
	return m.ranking[:limit], nil
}

func (m *mockDependencies) Standing(_ context.Context, id model.CandidateID) (types.Standing, error) {
	for _, st := range m.ranking {
		if st.CandidateID == uint64(id) {
			return st, nil
		}
	}
	return types.Standing{}, model.ErrNotFound
}

func (m *mockDependencies) CandidateStats(_ context.Context, id model.CandidateID) (model.CandidateStats, error) {
	st, ok := m.stats[id]
	if !ok {
		return model.CandidateStats{}, fmt.Errorf("stats %d: %w", id, model.ErrNotFound)
	}
	return st, nil
}

type mockStatsProvider struct{}

func (mockStatsProvider) GetStats() map[string]any {
	return map[string]any{"started": true, "queueLength": 0}
}

func newMux(deps api.Dependencies, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, mockStatsProvider{}, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

const validResult = `{
  "bracket_id": "c7b1a3c2-2f7e-4f43-9a1d-1f0e2d3c4b5a",
  "user_uid": "0b7c2a1e-6f7e-4e43-9c7d-8d2f3c1a5b60",
  "total_rounds": 4,
  "results": [
    {"music_id": 11, "rank": 1},
    {"music_id": 14, "rank": 2},
    {"music_id": 12, "rank": 3},
    {"music_id": 13, "rank": 3}
  ]
}`

func TestServer_Operational(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(newMockDependencies())

		Convey("Then /healthz reports ok", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["status"], ShouldEqual, "ok")
		})

		Convey("Then /stats serves the provider's map", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["started"], ShouldEqual, true)
		})

		Convey("Then /metrics serves prometheus text", func() {
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "worldcup_")
		})

		Convey("Then unknown methods are rejected by the mux", func() {
			w := do(mux, http.MethodDelete, "/worldcup/ranking", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})

	Convey("Given a failing health dependency", t, func() {
		mux := newMux(newMockDependencies(), api.WithPinger(api.PingFunc(func(context.Context) error {
			return fmt.Errorf("database is closed")
		})))

		Convey("Then /healthz is unavailable", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decode(w)["error"], ShouldEqual, "database is closed")
		})
	})
}

func TestBrackets(t *testing.T) {
	Convey("Given the brackets endpoints", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("When a bracket is issued", func() {
			w := do(mux, http.MethodPost, "/worldcup/brackets", `{"genre":"Pop","tag":"겨울","size":4}`)

			Convey("Then it is created with its schedule", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(deps.lastSize, ShouldEqual, 4)
				So(deps.lastFilt, ShouldResemble, model.Filter{Genre: model.GenrePop, Tag: "겨울"})

				body := decode(w)
				So(body["bracket_id"], ShouldEqual, specOf4().ID)
				So(body["rounds"], ShouldEqual, 2.0)
				So(body["expires_at"], ShouldEqual, "2026-04-02T10:30:00Z")

				slots := body["slots"].([]any)
				So(slots, ShouldHaveLength, 4)
				So(slots[3].(map[string]any)["thumbnail_url"], ShouldEqual, "/thumbs/14.jpg")

				matches := body["matches"].([]any)
				So(matches, ShouldHaveLength, 3)
				first := matches[0].(map[string]any)
				So(first["home"], ShouldEqual, 11.0)
				So(first["away"], ShouldEqual, 12.0)
				final := matches[2].(map[string]any)
				So(final["round"], ShouldEqual, 1.0)
				So(final, ShouldNotContainKey, "home")
			})
		})

		Convey("When the genre is unknown", func() {
			w := do(mux, http.MethodPost, "/worldcup/brackets", `{"genre":"polka","size":4}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "bad_request")
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/worldcup/brackets", `size=4`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the size is invalid", func() {
			deps.issueErr = fmt.Errorf("size 6: %w", model.ErrInvalidBracketSize)
			w := do(mux, http.MethodPost, "/worldcup/brackets", `{"size":6}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "invalid_bracket_size")
		})

		Convey("When the catalog is too small", func() {
			deps.issueErr = model.ErrInsufficientCandidates
			w := do(mux, http.MethodPost, "/worldcup/brackets", `{"size":32}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decode(w)["code"], ShouldEqual, "insufficient_candidates")
		})

		Convey("When an issued bracket is fetched", func() {
			w := do(mux, http.MethodGet, "/worldcup/brackets/"+specOf4().ID, "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w), ShouldNotContainKey, "expires_at")
		})

		Convey("When an unknown bracket is fetched", func() {
			w := do(mux, http.MethodGet, "/worldcup/brackets/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "bracket_mismatch")
		})
	})
}

func TestResults(t *testing.T) {
	Convey("Given the results endpoint", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps, api.WithJWTSecret(testSecret))

		Convey("When an anonymous result is submitted", func() {
			w := do(mux, http.MethodPost, "/worldcup/results", validResult)

			Convey("Then it is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["accepted"], ShouldEqual, true)
				So(body["champion"], ShouldEqual, 11.0)
				So(deps.submitted, ShouldHaveLength, 1)
				So(deps.submitted[0].Participant, ShouldResemble, model.Participant{AnonID: "0b7c2a1e-6f7e-4e43-9c7d-8d2f3c1a5b60"})
				So(deps.submitted[0].Entries[1], ShouldResemble, model.Entry{CandidateID: 14, Rank: 2})
			})
		})

		Convey("When an authenticated result is submitted", func() {
			token, err := api.NewAuthenticator([]byte(testSecret)).Sign("user-42", time.Hour)
			So(err, ShouldBeNil)
			body := strings.Replace(validResult, `"user_uid": "0b7c2a1e-6f7e-4e43-9c7d-8d2f3c1a5b60",`, "", 1)
			w := do(mux, http.MethodPost, "/worldcup/results", body, "Authorization", "Bearer "+token)

			Convey("Then the participant is the token subject", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.submitted[0].Participant, ShouldResemble, model.Participant{UserID: "user-42"})
			})
		})

		Convey("When the token is signed with another secret", func() {
			token, _ := api.NewAuthenticator([]byte("other")).Sign("user-42", time.Hour)
			w := do(mux, http.MethodPost, "/worldcup/results", validResult, "Authorization", "Bearer "+token)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
			So(decode(w)["code"], ShouldEqual, "unauthorized")
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("When the header is not a bearer token", func() {
			w := do(mux, http.MethodPost, "/worldcup/results", validResult, "Authorization", "Basic dXNlcjpwYXNz")
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When the user_uid is not a UUID", func() {
			body := strings.Replace(validResult, "0b7c2a1e-6f7e-4e43-9c7d-8d2f3c1a5b60", "me", 1)
			w := do(mux, http.MethodPost, "/worldcup/results", body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a rank is zero", func() {
			body := strings.Replace(validResult, `"rank": 2`, `"rank": 0`, 1)
			w := do(mux, http.MethodPost, "/worldcup/results", body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("When the result is a duplicate", func() {
			deps.submitErr = fmt.Errorf("commit: %w", model.ErrDuplicateSubmission)
			w := do(mux, http.MethodPost, "/worldcup/results", validResult)

			Convey("Then it is rejected without being accepted", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				body := decode(w)
				So(body["accepted"], ShouldEqual, false)
				So(body["code"], ShouldEqual, "duplicate_submission")
			})
		})

		Convey("When domain validation fails", func() {
			cases := []struct {
				err    error
				status int
				code   string
			}{
				{model.ErrBracketMismatch, http.StatusNotFound, "bracket_mismatch"},
				{model.ErrCandidateSetMismatch, http.StatusUnprocessableEntity, "candidate_set_mismatch"},
				{model.ErrRankDistributionMismatch, http.StatusUnprocessableEntity, "rank_distribution_mismatch"},
				{model.ErrPickMismatch, http.StatusUnprocessableEntity, "pick_mismatch"},
				{model.ErrAmbiguousParticipant, http.StatusBadRequest, "ambiguous_participant"},
				{model.ErrInvalidInput, http.StatusBadRequest, "bad_request"},
				{fmt.Errorf("connection reset"), http.StatusInternalServerError, "internal_error"},
			}
			for _, c := range cases {
				deps.submitErr = fmt.Errorf("validate: %w", c.err)
				w := do(mux, http.MethodPost, "/worldcup/results", validResult)
				So(w.Code, ShouldEqual, c.status)
				So(decode(w)["code"], ShouldEqual, c.code)
			}
		})

		Convey("When the server fails internally", func() {
			deps.submitErr = fmt.Errorf("pq: password authentication failed for user worldcup")
			w := do(mux, http.MethodPost, "/worldcup/results", validResult)

			Convey("Then the cause is not leaked", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldNotContainSubstring, "password")
			})
		})
	})

	Convey("Given a server without a JWT secret", t, func() {
		mux := newMux(newMockDependencies())

		Convey("Then bearer tokens are refused", func() {
			token, _ := api.NewAuthenticator([]byte(testSecret)).Sign("user-42", time.Hour)
			w := do(mux, http.MethodPost, "/worldcup/results", validResult, "Authorization", "Bearer "+token)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})
	})
}

func TestRankingAndCandidates(t *testing.T) {
	Convey("Given a populated ranking", t, func() {
		deps := newMockDependencies()
		deps.ranking = []types.Standing{
			{Rank: 1, CandidateID: 11, Wins: 4, Appearances: 8, BestFinish: 1},
			{Rank: 2, CandidateID: 14, Wins: 1, Appearances: 5, BestFinish: 1},
		}
		deps.stats[11] = model.CandidateStats{CandidateID: 11, Appearances: 8, Wins: 4, BestFinish: 1, UpdatedAt: issuedAt}
		deps.stats[12] = model.CandidateStats{CandidateID: 12, Appearances: 2, BestFinish: 3, UpdatedAt: issuedAt}
		mux := newMux(deps, api.WithDefaultRankingLimit(1))

		Convey("When the ranking is read without a limit", func() {
			w := do(mux, http.MethodGet, "/worldcup/ranking", "")

			Convey("Then the default page size applies", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var rows []map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &rows), ShouldBeNil)
				So(rows, ShouldHaveLength, 1)
				So(rows[0]["candidate_id"], ShouldEqual, 11.0)
				So(rows[0]["win_rate"], ShouldEqual, 0.5)
			})
		})

		Convey("When the limit is not a number", func() {
			w := do(mux, http.MethodGet, "/worldcup/ranking?limit=ten", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit is out of range", func() {
			w := do(mux, http.MethodGet, "/worldcup/ranking?limit=500", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a ranked candidate's stats are read", func() {
			w := do(mux, http.MethodGet, "/worldcup/candidates/11/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["wins"], ShouldEqual, 4.0)
			So(body["rank"], ShouldEqual, 1.0)
		})

		Convey("When an unranked candidate's stats are read", func() {
			w := do(mux, http.MethodGet, "/worldcup/candidates/12/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w), ShouldNotContainKey, "rank")
		})

		Convey("When an unknown candidate is read", func() {
			w := do(mux, http.MethodGet, "/worldcup/candidates/99/stats", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "not_found")
		})

		Convey("When the candidate id is malformed", func() {
			w := do(mux, http.MethodGet, "/worldcup/candidates/abc/stats", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestRateLimiter(t *testing.T) {
	Convey("Given a rate limited server", t, func() {
		mux := newMux(newMockDependencies(), api.WithRateLimit(1, 2))

		Convey("When one client exceeds its burst", func() {
			codes := make([]int, 3)
			for i := range codes {
				codes[i] = do(mux, http.MethodGet, "/worldcup/ranking", "").Code
			}

			Convey("Then the extra request is throttled", func() {
				So(codes[0], ShouldEqual, http.StatusOK)
				So(codes[1], ShouldEqual, http.StatusOK)
				So(codes[2], ShouldEqual, http.StatusTooManyRequests)
			})

			Convey("Then operational endpoints are not throttled", func() {
				So(do(mux, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)
			})
		})
	})

	Convey("Given a limiter", t, func() {
		l := api.NewRateLimiter(1, 1)

		Convey("Then clients are limited independently", func() {
			So(l.Allow("10.0.0.1"), ShouldBeTrue)
			So(l.Allow("10.0.0.1"), ShouldBeFalse)
			So(l.Allow("10.0.0.2"), ShouldBeTrue)
		})
	})
}
