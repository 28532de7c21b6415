package tracker

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"lol-stream-tracker/internal/domain"
	"lol-stream-tracker/internal/record"
	"lol-stream-tracker/internal/riot"
	"lol-stream-tracker/internal/session"

	"github.com/rs/zerolog"
)

var streamStart = time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)

type fakeAPI struct {
	mu         sync.Mutex
	account    *riot.Account
	accountErr error
	snapshot   *domain.RankSnapshot
	rankErr    error
	matches    []domain.Match
	matchesErr error
	calls      int
}

func (f *fakeAPI) AccountByRiotID(context.Context, string, string, string) (*riot.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return f.account, nil
}

func (f *fakeAPI) CurrentSoloQueueRank(context.Context, string, string) (*domain.RankSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.rankErr != nil {
		return nil, f.rankErr
	}
	return f.snapshot, nil
}

func (f *fakeAPI) MatchesSince(context.Context, string, string, time.Time) ([]domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.matchesErr != nil {
		return nil, f.matchesErr
	}
	return f.matches, nil
}

type fakeStore struct {
	sessions map[string]*domain.Session
	puts     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]*domain.Session)}
}

func storeKey(gameType domain.GameType, summoner, tag string) string {
	return string(gameType) + "/" + summoner + "#" + tag
}

func (f *fakeStore) Get(_ context.Context, gameType domain.GameType, summoner, tag string) (*domain.Session, error) {
	s, ok := f.sessions[storeKey(gameType, summoner, tag)]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStore) Put(_ context.Context, gameType domain.GameType, summoner, tag string, s *domain.Session) error {
	f.puts++
	copied := *s
	f.sessions[storeKey(gameType, summoner, tag)] = &copied
	return nil
}

type fakeCaptures struct {
	lp map[string]*int
}

func newFakeCaptures() *fakeCaptures {
	return &fakeCaptures{lp: make(map[string]*int)}
}

func captureKey(summoner, tag string, start time.Time) string {
	return summoner + "#" + tag + "@" + start.Format(time.RFC3339)
}

func (f *fakeCaptures) Get(_ context.Context, summoner, tag string, start time.Time) (*int, error) {
	return f.lp[captureKey(summoner, tag, start)], nil
}

func goldII(lp int) *domain.RankSnapshot {
	tier, div := "GOLD", "II"
	abs, _ := riot.AbsoluteRankPoints(tier, div, lp)
	return &domain.RankSnapshot{
		Tier:       &tier,
		Division:   &div,
		RankPoints: domain.IntPtr(abs),
		DivisionLP: domain.IntPtr(lp),
	}
}

func win(id string, offset time.Duration) domain.Match {
	return domain.Match{ID: id, EndedAt: streamStart.Add(offset), Outcome: domain.OutcomeWin}
}

func loss(id string, offset time.Duration) domain.Match {
	return domain.Match{ID: id, EndedAt: streamStart.Add(offset), Outcome: domain.OutcomeLoss}
}

func newTestTracker(api *fakeAPI) (*Tracker, *fakeStore, *fakeCaptures) {
	store := newFakeStore()
	captures := newFakeCaptures()
	manager := session.NewManager(store, captures, zerolog.Nop())
	return NewTracker(api, manager, zerolog.Nop()), store, captures
}

func params() RecordParams {
	return RecordParams{
		GameType:    domain.GameTypeLoL,
		Summoner:    "streamer",
		Tag:         "NA1",
		Region:      "na1",
		StreamStart: streamStart,
	}
}

func TestFirstCallNoGamesYet(t *testing.T) {
	// Current rank is the exact baseline when nothing has been played.
	snapshot := goldII(50)
	api := &fakeAPI{account: &riot.Account{PUUID: "puuid-1"}, snapshot: snapshot}
	tr, store, _ := newTestTracker(api)

	summary, err := tr.Record(context.Background(), params())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !summary.NoGamesYet {
		t.Error("expected a no-games-yet summary")
	}
	if summary.Wins != 0 || summary.Losses != 0 {
		t.Errorf("got %dW-%dL, want 0W-0L", summary.Wins, summary.Losses)
	}
	if summary.BaselineApproximate {
		t.Error("zero-games baseline is exact, not approximate")
	}
	if summary.Response != "[Gold II 50LP] No ranked games this stream yet!" {
		t.Errorf("unexpected response %q", summary.Response)
	}

	stored := store.sessions[storeKey(domain.GameTypeLoL, "streamer", "NA1")]
	if stored == nil {
		t.Fatal("session not persisted")
	}
	if *stored.StartingRankPoints != *snapshot.RankPoints {
		t.Errorf("baseline = %d, want %d", *stored.StartingRankPoints, *snapshot.RankPoints)
	}
}

func TestContinuingSessionDelta(t *testing.T) {
	// Baseline at Gold II 50LP, now Gold II 65LP with 2W-1L.
	baseline := goldII(50)
	api := &fakeAPI{
		account:  &riot.Account{PUUID: "puuid-1"},
		snapshot: goldII(65),
		matches: []domain.Match{
			win("m1", 30*time.Minute),
			win("m2", time.Hour),
			loss("m3", 2*time.Hour),
		},
	}
	tr, store, _ := newTestTracker(api)
	store.sessions[storeKey(domain.GameTypeLoL, "streamer", "NA1")] = &domain.Session{
		GameType:           domain.GameTypeLoL,
		StreamStart:        streamStart,
		StartingRankPoints: baseline.RankPoints,
	}

	summary, err := tr.Record(context.Background(), params())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Wins != 2 || summary.Losses != 1 {
		t.Errorf("got %dW-%dL, want 2W-1L", summary.Wins, summary.Losses)
	}
	if summary.RankPointDelta == nil || *summary.RankPointDelta != 15 {
		t.Errorf("delta = %v, want +15", summary.RankPointDelta)
	}
	if summary.Response != "[Gold II 65LP] Stream Record: 2W-1L | LP: +15" {
		t.Errorf("unexpected response %q", summary.Response)
	}
}

func TestIdempotentReconciliation(t *testing.T) {
	api := &fakeAPI{
		account:  &riot.Account{PUUID: "puuid-1"},
		snapshot: goldII(65),
		matches:  []domain.Match{win("m1", time.Minute), loss("m2", time.Hour)},
	}
	tr, store, _ := newTestTracker(api)

	first, err := tr.Record(context.Background(), params())
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	firstStored := *store.sessions[storeKey(domain.GameTypeLoL, "streamer", "NA1")]

	second, err := tr.Record(context.Background(), params())
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	secondStored := *store.sessions[storeKey(domain.GameTypeLoL, "streamer", "NA1")]

	// Timestamps aside, the records and summaries must match.
	firstStored.CreatedAt, secondStored.CreatedAt = time.Time{}, time.Time{}
	firstStored.UpdatedAt, secondStored.UpdatedAt = time.Time{}, time.Time{}
	if !reflect.DeepEqual(firstStored, secondStored) {
		t.Errorf("stored records differ:\n first: %+v\nsecond: %+v", firstStored, secondStored)
	}

	first.Session, second.Session = nil, nil
	if !reflect.DeepEqual(first, second) {
		t.Errorf("summaries differ:\n first: %+v\nsecond: %+v", first, second)
	}
}

func TestBaselineStableAcrossRankFluctuation(t *testing.T) {
	api := &fakeAPI{
		account:  &riot.Account{PUUID: "puuid-1"},
		snapshot: goldII(50),
	}
	tr, store, _ := newTestTracker(api)

	if _, err := tr.Record(context.Background(), params()); err != nil {
		t.Fatalf("first call: %v", err)
	}
	want := *store.sessions[storeKey(domain.GameTypeLoL, "streamer", "NA1")].StartingRankPoints

	// Rank moves, games appear; baseline must not.
	api.snapshot = goldII(80)
	api.matches = []domain.Match{win("m1", time.Minute)}
	if _, err := tr.Record(context.Background(), params()); err != nil {
		t.Fatalf("second call: %v", err)
	}

	got := *store.sessions[storeKey(domain.GameTypeLoL, "streamer", "NA1")].StartingRankPoints
	if got != want {
		t.Errorf("baseline moved from %d to %d", want, got)
	}
}

func TestUnknownDeltaPreservesStoredDelta(t *testing.T) {
	api := &fakeAPI{
		account:  &riot.Account{PUUID: "puuid-1"},
		snapshot: goldII(65),
		matches:  []domain.Match{win("m1", time.Minute), loss("m2", time.Hour)},
	}
	tr, store, _ := newTestTracker(api)

	if _, err := tr.Record(context.Background(), params()); err != nil {
		t.Fatalf("first call: %v", err)
	}

	// Rank temporarily unavailable: upstream reports unranked.
	api.snapshot = &domain.RankSnapshot{}
	summary, err := tr.Record(context.Background(), params())
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	stored := store.sessions[storeKey(domain.GameTypeLoL, "streamer", "NA1")]
	if stored.RankPointDelta == nil {
		t.Fatal("stored delta was erased by an unknown delta")
	}
	if summary.RankPointDelta == nil {
		t.Error("summary lost the last known delta")
	}
}

func TestChangedStreamStartBeginsFreshSession(t *testing.T) {
	api := &fakeAPI{
		account:  &riot.Account{PUUID: "puuid-1"},
		snapshot: goldII(65),
		matches:  []domain.Match{win("m1", time.Minute)},
	}
	tr, store, _ := newTestTracker(api)
	store.sessions[storeKey(domain.GameTypeLoL, "streamer", "NA1")] = &domain.Session{
		GameType:           domain.GameTypeLoL,
		StreamStart:        streamStart.Add(-24 * time.Hour),
		StartingRankPoints: domain.IntPtr(1000),
		Wins:               7,
		Losses:             4,
		RankPointDelta:     domain.IntPtr(40),
	}

	// Today's match, no games within the new window yet.
	api.matches = nil
	summary, err := tr.Record(context.Background(), params())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Wins != 0 || summary.Losses != 0 {
		t.Errorf("fresh session must start 0W-0L, got %dW-%dL", summary.Wins, summary.Losses)
	}
	stored := store.sessions[storeKey(domain.GameTypeLoL, "streamer", "NA1")]
	if !stored.StreamStart.Equal(streamStart) {
		t.Errorf("stored stream start = %v, want %v", stored.StreamStart, streamStart)
	}
	if *stored.StartingRankPoints == 1000 {
		t.Error("fresh session must not inherit the old baseline")
	}
}

func TestCapturedLPTakesPriorityOverCurrent(t *testing.T) {
	api := &fakeAPI{
		account:  &riot.Account{PUUID: "puuid-1"},
		snapshot: goldII(65),
		matches:  []domain.Match{win("m1", time.Minute)},
	}
	tr, store, captures := newTestTracker(api)
	captures.lp[captureKey("streamer", "NA1", streamStart)] = domain.IntPtr(1250)

	summary, err := tr.Record(context.Background(), params())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := store.sessions[storeKey(domain.GameTypeLoL, "streamer", "NA1")]
	if *stored.StartingRankPoints != 1250 {
		t.Errorf("baseline = %d, want the captured 1250", *stored.StartingRankPoints)
	}
	if summary.BaselineApproximate {
		t.Error("a captured baseline is exact")
	}
}

func TestOverrideBypassesEverything(t *testing.T) {
	api := &fakeAPI{
		account:  &riot.Account{PUUID: "puuid-1"},
		snapshot: goldII(65),
	}
	tr, store, captures := newTestTracker(api)
	captures.lp[captureKey("streamer", "NA1", streamStart)] = domain.IntPtr(1250)

	p := params()
	p.OverrideStartLP = domain.IntPtr(1200)
	_, err := tr.Record(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := store.sessions[storeKey(domain.GameTypeLoL, "streamer", "NA1")]
	if *stored.StartingRankPoints != 1200 {
		t.Errorf("baseline = %d, want the override 1200", *stored.StartingRankPoints)
	}
}

func TestLateFirstCallFlagsApproximateBaseline(t *testing.T) {
	api := &fakeAPI{
		account:  &riot.Account{PUUID: "puuid-1"},
		snapshot: goldII(65),
		matches:  []domain.Match{win("m1", time.Minute), win("m2", time.Hour)},
	}
	tr, store, _ := newTestTracker(api)

	summary, err := tr.Record(context.Background(), params())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !summary.BaselineApproximate {
		t.Error("games before first call with no capture must flag the baseline as approximate")
	}

	// The flag survives into the continuing session.
	summary, err = tr.Record(context.Background(), params())
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !summary.BaselineApproximate {
		t.Error("approximate flag must persist for the session's lifetime")
	}
	if !store.sessions[storeKey(domain.GameTypeLoL, "streamer", "NA1")].BaselineApproximate {
		t.Error("approximate flag not persisted")
	}
}

func TestMalformedMatchAbortsBeforePersistence(t *testing.T) {
	api := &fakeAPI{
		account:  &riot.Account{PUUID: "puuid-1"},
		snapshot: goldII(65),
		matches: []domain.Match{
			{ID: "bad", EndedAt: streamStart.Add(time.Minute), Outcome: domain.OutcomeUnknown},
		},
	}
	tr, store, _ := newTestTracker(api)

	_, err := tr.Record(context.Background(), params())
	if !errors.Is(err, record.ErrMalformedMatch) {
		t.Fatalf("got err %v, want ErrMalformedMatch", err)
	}
	if store.puts != 0 {
		t.Error("nothing may be persisted when the pipeline aborts")
	}
}

func TestUpstreamFailureAbortsBeforePersistence(t *testing.T) {
	api := &fakeAPI{
		account: &riot.Account{PUUID: "puuid-1"},
		rankErr: riot.ErrUpstreamUnavailable,
	}
	tr, store, _ := newTestTracker(api)

	_, err := tr.Record(context.Background(), params())
	if !errors.Is(err, riot.ErrUpstreamUnavailable) {
		t.Fatalf("got err %v, want ErrUpstreamUnavailable", err)
	}
	if store.puts != 0 {
		t.Error("nothing may be persisted when an upstream call fails")
	}
}

func TestOfflineReturnsStoredRecordVerbatim(t *testing.T) {
	api := &fakeAPI{accountErr: errors.New("must not be called")}
	tr, store, _ := newTestTracker(api)
	store.sessions[storeKey(domain.GameTypeLoL, "streamer", "NA1")] = &domain.Session{
		GameType:       domain.GameTypeLoL,
		StreamStart:    streamStart,
		Wins:           3,
		Losses:         1,
		RankPointDelta: domain.IntPtr(-8),
	}

	summary, err := tr.Offline(context.Background(), domain.GameTypeLoL, "streamer", "NA1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !summary.Found {
		t.Fatal("expected a record")
	}
	if summary.Wins != 3 || summary.Losses != 1 || *summary.RankPointDelta != -8 {
		t.Errorf("got %dW-%dL delta %v, want 3W-1L delta -8",
			summary.Wins, summary.Losses, summary.RankPointDelta)
	}
	if api.calls != 0 {
		t.Error("offline path must not contact the rank service")
	}
	if summary.Response != "Stream is offline. Last stream's record: 3W-1L | LP: -8" {
		t.Errorf("unexpected response %q", summary.Response)
	}
}

func TestOfflineWithoutStoredSession(t *testing.T) {
	api := &fakeAPI{}
	tr, _, _ := newTestTracker(api)

	summary, err := tr.Offline(context.Background(), domain.GameTypeLoL, "streamer", "NA1")
	if err != nil {
		t.Fatalf("no stored session is not an error, got %v", err)
	}
	if summary.Found {
		t.Error("expected no record found")
	}
	if summary.Response != "Stream is offline. No previous record found." {
		t.Errorf("unexpected response %q", summary.Response)
	}
}

func TestOfflineZeroGameSessionCountsAsNoRecord(t *testing.T) {
	api := &fakeAPI{}
	tr, store, _ := newTestTracker(api)
	store.sessions[storeKey(domain.GameTypeLoL, "streamer", "NA1")] = &domain.Session{
		GameType:           domain.GameTypeLoL,
		StreamStart:        streamStart,
		StartingRankPoints: domain.IntPtr(1250),
	}

	summary, err := tr.Offline(context.Background(), domain.GameTypeLoL, "streamer", "NA1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Found {
		t.Error("a session with zero recorded games is not a usable record")
	}
}
