package emergency_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PabloGalante/guardian-agent/internal/adapters/llm"
	"github.com/PabloGalante/guardian-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/guardian-agent/internal/app/classifier"
	"github.com/PabloGalante/guardian-agent/internal/app/emergency"
	"github.com/PabloGalante/guardian-agent/internal/domain"
)

type failingGenerator struct{}

func (failingGenerator) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	return "", errors.New("upstream unavailable")
}

// missingSeverityGenerator answers the frame prompt without a severity
// and delegates everything else to the mock model.
type missingSeverityGenerator struct {
	llm.MockLLM
}

func (g *missingSeverityGenerator) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	if strings.Contains(req.Prompt, "Analyze this image") {
		return `{"emergency_type": "fracture", "observations": ["leg bent at odd angle"], "recommended_action": "Keep the leg still"}`, nil
	}
	return g.MockLLM.Generate(ctx, req)
}

// conflictingStore fails the next failUpdates writes with a version
// conflict.
type conflictingStore struct {
	*memory.SessionStore

	mu          sync.Mutex
	failUpdates int
}

func (s *conflictingStore) arm(n int) {
	s.mu.Lock()
	s.failUpdates = n
	s.mu.Unlock()
}

func (s *conflictingStore) Update(sess *domain.Session) error {
	s.mu.Lock()
	if s.failUpdates > 0 {
		s.failUpdates--
		s.mu.Unlock()
		return domain.ErrVersionConflict
	}
	s.mu.Unlock()
	return s.SessionStore.Update(sess)
}

// armingGenerator makes every store write conflict once the model has
// been called, so the write that applies the analysis runs out of retries.
type armingGenerator struct {
	llm.MockLLM
	store *conflictingStore
}

func (g *armingGenerator) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	g.store.arm(3)
	return g.MockLLM.Generate(ctx, req)
}

type fixture struct {
	svc       *emergency.Service
	sessions  *memory.SessionStore
	incidents *memory.IncidentStore
}

func newFixture(t *testing.T, gen domain.Generator) fixture {
	t.Helper()
	sessions := memory.NewSessionStore()
	incidents := memory.NewIncidentStore()
	cls := classifier.New(gen, classifier.Options{Timeout: time.Second})
	return fixture{
		svc:       emergency.NewService(sessions, incidents, cls),
		sessions:  sessions,
		incidents: incidents,
	}
}

func startWithFrame(t *testing.T, f fixture) *emergency.FrameResult {
	t.Helper()
	ctx := context.Background()

	sess, err := f.svc.StartSession(ctx, emergency.StartSessionInput{UserNotes: "collapsed at the gym", LocationData: "Main St"})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if sess.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", sess.Status)
	}

	res, err := f.svc.SubmitFrame(ctx, emergency.SubmitFrameInput{SessionID: sess.ID, Image: []byte("jpeg"), MIMEType: "image/jpeg"})
	if err != nil {
		t.Fatalf("SubmitFrame failed: %v", err)
	}
	return res
}

func TestSubmitFrameActivatesSession(t *testing.T) {
	f := newFixture(t, llm.NewMockLLM())
	res := startWithFrame(t, f)

	if res.Session.Status != domain.StatusActive || res.Session.CurrentStep != 1 {
		t.Fatalf("expected active at step 1, got %s step %d", res.Session.Status, res.Session.CurrentStep)
	}
	if res.Analysis.EmergencyType != domain.EmergencyCardiacArrest || res.Analysis.Severity != 5 {
		t.Fatalf("unexpected analysis %+v", res.Analysis)
	}
	if res.Current == nil || res.Current.StepNumber != 1 {
		t.Fatalf("expected first instruction, got %+v", res.Current)
	}
	if !strings.HasPrefix(res.VoiceGuidance, "This is a critical emergency.") || !strings.Contains(res.VoiceGuidance, "Step 1: ") {
		t.Fatalf("unexpected voice guidance %q", res.VoiceGuidance)
	}
}

func TestAdvanceThroughAllStepsThenConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.NewMockLLM())
	res := startWithFrame(t, f)
	id := res.Session.ID
	n := res.Session.TotalSteps()

	for step := 1; step < n; step++ {
		adv, err := f.svc.AdvanceStep(ctx, emergency.AdvanceStepInput{SessionID: id, ClaimedStep: step})
		if err != nil {
			t.Fatalf("advance from %d: %v", step, err)
		}
		if !adv.Advanced || adv.Instruction.StepNumber != step+1 {
			t.Fatalf("advance from %d: unexpected result %+v", step, adv)
		}
		if !strings.HasPrefix(adv.VoiceText, "Step ") {
			t.Fatalf("unexpected voice text %q", adv.VoiceText)
		}
	}

	done, err := f.svc.AdvanceStep(ctx, emergency.AdvanceStepInput{SessionID: id, ClaimedStep: n})
	if err != nil {
		t.Fatalf("final advance: %v", err)
	}
	if done.Advanced || !done.Completed || done.Session.Status != domain.StatusResolved {
		t.Fatalf("expected completion, got %+v", done)
	}

	if _, err := f.svc.AdvanceStep(ctx, emergency.AdvanceStepInput{SessionID: id, ClaimedStep: n}); !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded after completion, got %v", err)
	}

	rec, err := f.incidents.GetIncident(ctx, id)
	if err != nil {
		t.Fatalf("expected archived incident: %v", err)
	}
	if rec.StepsCompleted != n || rec.Status != domain.StatusResolved {
		t.Fatalf("unexpected incident %+v", rec)
	}
}

func TestAdvanceRejectsStaleClaim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.NewMockLLM())
	res := startWithFrame(t, f)

	_, err := f.svc.AdvanceStep(ctx, emergency.AdvanceStepInput{SessionID: res.Session.ID, ClaimedStep: 2})
	if !errors.Is(err, domain.ErrStepMismatch) {
		t.Fatalf("expected ErrStepMismatch, got %v", err)
	}

	sess, _ := f.svc.GetSession(ctx, res.Session.ID)
	if sess.CurrentStep != 1 {
		t.Fatalf("mismatch must not mutate, step is %d", sess.CurrentStep)
	}
}

func TestConcurrentAdvanceOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.NewMockLLM())
	res := startWithFrame(t, f)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AdvanceStep(ctx, emergency.AdvanceStepInput{SessionID: res.Session.ID, ClaimedStep: 1})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !domain.IsConflict(err) {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("expected exactly one advance, got %d", succeeded)
	}
	sess, _ := f.svc.GetSession(ctx, res.Session.ID)
	if sess.CurrentStep != 2 {
		t.Fatalf("expected step 2, got %d", sess.CurrentStep)
	}
}

func TestSubmitFrameUpstreamFailureGivesSafeGuidance(t *testing.T) {
	f := newFixture(t, failingGenerator{})
	res := startWithFrame(t, f)

	a := res.Analysis
	if a.EmergencyType != domain.EmergencyUnknown || a.Severity != 4 || a.ConfidenceScore != 0 || !a.CallEmergencyServices {
		t.Fatalf("expected fallback analysis, got %+v", a)
	}
	if res.Session.TotalSteps() != 2 || res.Current.InstructionText != "Call 911 immediately" {
		t.Fatalf("expected generic default steps, got %+v", res.Session.Instructions)
	}
}

func TestSubmitFrameOnEndedSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.NewMockLLM())
	sess, _ := f.svc.StartSession(ctx, emergency.StartSessionInput{})

	if _, err := f.svc.EndSession(ctx, emergency.EndSessionInput{SessionID: sess.ID, Reason: "cancelled"}); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	_, err := f.svc.SubmitFrame(ctx, emergency.SubmitFrameInput{SessionID: sess.ID, Image: []byte("x")})
	if !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded, got %v", err)
	}

	if _, err := f.svc.SubmitFrame(ctx, emergency.SubmitFrameInput{SessionID: "missing"}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestEndSessionTwiceIsConflictAndArchivesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.NewMockLLM())
	res := startWithFrame(t, f)

	ended, err := f.svc.EndSession(ctx, emergency.EndSessionInput{
		SessionID:               res.Session.ID,
		Reason:                  "handed over",
		Notes:                   "paramedics took over",
		EmergencyServicesCalled: true,
	})
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if ended.Status != domain.StatusEscalated || !strings.Contains(ended.UserNotes, "Resolution: paramedics took over") {
		t.Fatalf("unexpected ended session %+v", ended)
	}

	_, err = f.svc.EndSession(ctx, emergency.EndSessionInput{SessionID: res.Session.ID, Reason: "again"})
	if !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded, got %v", err)
	}

	recs, _ := f.incidents.ListIncidents(ctx, 0)
	if len(recs) != 1 || recs[0].Status != domain.StatusEscalated {
		t.Fatalf("expected one escalated incident, got %+v", recs)
	}
	if f.svc.ActiveCount() != 0 {
		t.Fatalf("expected no active sessions")
	}
}

func TestCurrentInstructionAndMonitoring(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.NewMockLLM())

	sess, _ := f.svc.StartSession(ctx, emergency.StartSessionInput{})
	view, err := f.svc.CurrentInstruction(ctx, sess.ID)
	if err != nil || view != nil {
		t.Fatalf("expected no instruction before analysis, got %+v %v", view, err)
	}

	res, err := f.svc.SubmitFrame(ctx, emergency.SubmitFrameInput{SessionID: sess.ID, Image: []byte("x")})
	if err != nil {
		t.Fatalf("SubmitFrame: %v", err)
	}
	view, err = f.svc.CurrentInstruction(ctx, sess.ID)
	if err != nil || view == nil {
		t.Fatalf("expected instruction, got %v", err)
	}
	if view.CurrentStep != 1 || view.TotalSteps != res.Session.TotalSteps() || view.Next == nil {
		t.Fatalf("unexpected view %+v", view)
	}
	if !strings.HasPrefix(view.VoiceText, "Step 1 of ") {
		t.Fatalf("unexpected voice text %q", view.VoiceText)
	}

	mon, err := f.svc.SetMonitoring(ctx, sess.ID, true)
	if err != nil || mon.Status != domain.StatusMonitoring {
		t.Fatalf("expected monitoring, got %v %v", mon, err)
	}
	if _, err := f.svc.SetMonitoring(ctx, sess.ID, true); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	adv, err := f.svc.AdvanceStep(ctx, emergency.AdvanceStepInput{SessionID: sess.ID, ClaimedStep: 1})
	if err != nil || adv.Session.Status != domain.StatusActive {
		t.Fatalf("advance from monitoring should reactivate, got %v %v", adv, err)
	}
}

func TestVoiceQueryAndAudio(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.NewMockLLM())
	res := startWithFrame(t, f)

	reply, err := f.svc.VoiceQuery(ctx, res.Session.ID, "am I pushing hard enough?")
	if err != nil || reply == "" {
		t.Fatalf("expected reply, got %q %v", reply, err)
	}
	if _, err := f.svc.VoiceQuery(ctx, "nope", "hello"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	ack, err := f.svc.ReceiveAudio(ctx, res.Session.ID, emergency.AudioChunk{Data: []byte("pcm"), SampleRate: 16000, Channels: 1, DurationMS: 500})
	if err != nil {
		t.Fatalf("ReceiveAudio: %v", err)
	}
	if ack.BytesReceived != 3 || ack.VoiceResponse == "" {
		t.Fatalf("unexpected ack %+v", ack)
	}
}

func TestSweeperRemovesOnlyExpiredEndedSessions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	sessions := memory.NewSessionStoreWithClock(clock)
	svc := emergency.NewService(sessions, nil, classifier.New(llm.NewMockLLM(), classifier.Options{})).WithClock(clock)

	live, _ := svc.StartSession(ctx, emergency.StartSessionInput{})
	gone, _ := svc.StartSession(ctx, emergency.StartSessionInput{})
	if _, err := svc.EndSession(ctx, emergency.EndSessionInput{SessionID: gone.ID, Reason: "done"}); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	now = now.Add(25 * time.Hour)
	sweeper := emergency.NewSweeper(sessions, time.Minute, 24*time.Hour)
	if removed := sweeper.SweepOnce(ctx); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := svc.GetSession(ctx, live.ID); err != nil {
		t.Fatalf("live session swept: %v", err)
	}
	if _, err := svc.GetSession(ctx, gone.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ended session swept, got %v", err)
	}
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := emergency.NewSweeper(memory.NewSessionStore(), time.Millisecond, time.Hour)

	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("sweeper did not stop")
	}
}

func TestSubmitFrameScoresMissingSeverity(t *testing.T) {
	f := newFixture(t, &missingSeverityGenerator{})
	res := startWithFrame(t, f)

	if res.Analysis.EmergencyType != domain.EmergencyFracture {
		t.Fatalf("expected fracture, got %s", res.Analysis.EmergencyType)
	}
	want := domain.ScoreSeverity(domain.EmergencyFracture, []string{"leg bent at odd angle"})
	if want != 2 {
		t.Fatalf("rule table changed: fracture scores %d", want)
	}
	if !res.Analysis.SeverityEstimated || res.Analysis.Severity != want {
		t.Fatalf("expected estimated severity %d, got %d (estimated=%v)", want, res.Analysis.Severity, res.Analysis.SeverityEstimated)
	}

	stored, err := f.sessions.Get(res.Session.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Analysis.Severity != want {
		t.Fatalf("stored severity %d, want %d", stored.Analysis.Severity, want)
	}
}

func TestSubmitFrameApplyFailureReleasesAnalyzing(t *testing.T) {
	ctx := context.Background()
	store := &conflictingStore{SessionStore: memory.NewSessionStore()}
	cls := classifier.New(&armingGenerator{store: store}, classifier.Options{Timeout: time.Second})
	svc := emergency.NewService(store, memory.NewIncidentStore(), cls)

	sess, err := svc.StartSession(ctx, emergency.StartSessionInput{})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	_, err = svc.SubmitFrame(ctx, emergency.SubmitFrameInput{SessionID: sess.ID, Image: []byte("jpeg"), MIMEType: "image/jpeg"})
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	got, err := store.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Fatalf("expected session released to pending, got %s", got.Status)
	}
}
