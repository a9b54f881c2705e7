package conditions

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	clocktesting "k8s.io/utils/clock/testing"
)

var ignoreTransitionTime = cmpopts.IgnoreFields(Condition{}, "LastTransitionTime")

func newTestManager(t *testing.T) (*Manager, *Conditions, *clocktesting.FakeClock) {
	t.Helper()
	clk := clocktesting.NewFakeClock(epoch)
	conds := testSet.Initial()
	return testSet.Manage(&conds, WithClock(clk)), &conds, clk
}

func assertHappy(t *testing.T, m *Manager, status metav1.ConditionStatus, reason, message string) {
	t.Helper()
	got := m.GetTopLevelCondition()
	want := &Condition{Type: testReady, Status: status, Reason: reason, Message: message}
	if diff := cmp.Diff(want, got, ignoreTransitionTime); diff != "" {
		t.Fatalf("unexpected happy condition (-want +got):\n%s", diff)
	}
}

func TestScenarioDependentsDriveHappy(t *testing.T) {
	m, _, clk := newTestManager(t)

	m.MarkTrue(testSinkProvided)
	assertHappy(t, m, metav1.ConditionUnknown, "", "")

	clk.Step(time.Second)
	m.MarkTrue(testOther)
	assertHappy(t, m, metav1.ConditionTrue, "", "")
	if !m.IsHappy() {
		t.Fatalf("expected happy once every dependent is True")
	}

	clk.Step(time.Second)
	m.MarkFalse(testSinkProvided, "X", "boom")
	assertHappy(t, m, metav1.ConditionFalse, "X", "boom")
	if m.IsHappy() {
		t.Fatalf("expected unhappy after a dependent went False")
	}
}

func TestMarkTrueTwiceOnlyStampsOnce(t *testing.T) {
	m, _, clk := newTestManager(t)

	clk.Step(time.Second)
	m.MarkTrue(testSinkProvided)
	first := m.GetCondition(testSinkProvided).LastTransitionTime.Time

	clk.Step(time.Second)
	m.MarkTrue(testSinkProvided)
	if second := m.GetCondition(testSinkProvided).LastTransitionTime.Time; !second.Equal(first) {
		t.Fatalf("expected transition time %v to be kept, got %v", first, second)
	}
}

func TestAggregationUnknownDependentKeepsHappyUnknown(t *testing.T) {
	m, _, clk := newTestManager(t)
	m.MarkTrue(testSinkProvided)
	m.MarkTrue(testOther)

	clk.Step(time.Second)
	m.MarkUnknown(testSinkProvided, "Resolving", "sink %s is being resolved", "default/broker")
	assertHappy(t, m, metav1.ConditionUnknown, "Resolving", "sink default/broker is being resolved")
}

func TestMarkFalseOnDependentOverridesTrueSiblings(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.MarkTrue(testOther)
	m.MarkFalse(testSinkProvided, "NoSink", "sink %q missing", "broker")

	assertHappy(t, m, metav1.ConditionFalse, "NoSink", `sink "broker" missing`)
	got := m.GetCondition(testSinkProvided)
	if !got.IsFalse() || got.Reason != "NoSink" || got.Severity != ConditionSeverityError {
		t.Fatalf("unexpected dependent condition %+v", got)
	}
}

func TestUnknownDoesNotMaskFalse(t *testing.T) {
	m, _, clk := newTestManager(t)
	m.MarkFalse(testSinkProvided, "NoSink", "missing")

	clk.Step(time.Second)
	m.MarkUnknown(testOther, "Probing", "still probing")

	assertHappy(t, m, metav1.ConditionFalse, "NoSink", "missing")
}

func TestMarkUnknownEscalatesWithSuppliedReason(t *testing.T) {
	clk := clocktesting.NewFakeClock(epoch)
	conds := testSet.MustSeed(
		Condition{Type: testReady, Status: metav1.ConditionUnknown},
		Condition{Type: testSinkProvided, Status: metav1.ConditionFalse, Reason: "NoSink"},
		Condition{Type: testOther, Status: metav1.ConditionTrue},
	)
	m := testSet.Manage(&conds, WithClock(clk))

	m.MarkUnknown(testOther, "Probing", "still probing")

	// The happy condition carries the reason of the call that escalated it, not the
	// reason of the failing dependent.
	assertHappy(t, m, metav1.ConditionFalse, "Probing", "still probing")
}

func TestMarkUnknownOnHappyType(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.MarkTrue(testSinkProvided)
	m.MarkTrue(testOther)

	m.MarkUnknown(testReady, ReasonNewObservedGenFailure, "new generation")
	assertHappy(t, m, metav1.ConditionUnknown, ReasonNewObservedGenFailure, "new generation")
}

func TestTieBreakPrefersLatestTransition(t *testing.T) {
	const third ConditionType = "Third"
	set := MustConditionSet(testReady, testSinkProvided, testOther, third)
	clk := clocktesting.NewFakeClock(epoch.Add(time.Hour))
	conds := set.MustSeed(
		Condition{Type: testReady, Status: metav1.ConditionUnknown, LastTransitionTime: timePtr(epoch)},
		Condition{Type: testSinkProvided, Status: metav1.ConditionFalse, Reason: "Early", LastTransitionTime: timePtr(epoch.Add(time.Minute))},
		Condition{Type: testOther, Status: metav1.ConditionFalse, Reason: "Late", LastTransitionTime: timePtr(epoch.Add(2 * time.Minute))},
		Condition{Type: third, Status: metav1.ConditionUnknown},
	)
	m := set.Manage(&conds, WithClock(clk))

	m.MarkTrue(third)
	assertHappy(t, m, metav1.ConditionFalse, "Late", "")
}

func TestTieBreakWithinOneSecondAfterRoundTrip(t *testing.T) {
	const third ConditionType = "Third"
	set := MustConditionSet(testReady, testSinkProvided, testOther, third)
	seed := set.MustSeed(
		Condition{Type: testReady, Status: metav1.ConditionUnknown},
		Condition{Type: testSinkProvided, Status: metav1.ConditionFalse, Reason: "First", LastTransitionTime: timePtr(epoch.Add(100 * time.Millisecond))},
		Condition{Type: testOther, Status: metav1.ConditionFalse, Reason: "Second", LastTransitionTime: timePtr(epoch.Add(900 * time.Millisecond))},
		Condition{Type: third, Status: metav1.ConditionUnknown},
	)
	clk := clocktesting.NewFakeClock(epoch.Add(time.Hour))

	live := seed.DeepCopy()
	m := set.Manage(&live, WithClock(clk))
	m.MarkTrue(third)
	assertHappy(t, m, metav1.ConditionFalse, "Second", "")

	// Serialized timestamps drop sub-second precision, so both failures tie and the
	// first one in store order is reported.
	data, err := json.Marshal(seed)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var stored Conditions
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	m = set.Manage(&stored, WithClock(clk))
	m.MarkTrue(third)
	assertHappy(t, m, metav1.ConditionFalse, "First", "")
}

func TestFindUnhappyDependentDoesNotReorder(t *testing.T) {
	conds := testSet.MustSeed(
		Condition{Type: testReady, Status: metav1.ConditionFalse, LastTransitionTime: timePtr(epoch)},
		Condition{Type: testSinkProvided, Status: metav1.ConditionFalse, LastTransitionTime: timePtr(epoch.Add(3 * time.Hour))},
		Condition{Type: testOther, Status: metav1.ConditionFalse, LastTransitionTime: timePtr(epoch.Add(2 * time.Hour))},
		Condition{Type: testUnimportant, Status: metav1.ConditionFalse, LastTransitionTime: timePtr(epoch.Add(2 * time.Hour))},
	)
	m := testSet.Manage(&conds)

	unhappy := m.findUnhappyDependent()
	if unhappy == nil || unhappy.Type != testSinkProvided {
		t.Fatalf("expected most recent False dependent, got %+v", unhappy)
	}
	if !unhappy.LastTransitionTime.Time.Equal(epoch.Add(3 * time.Hour)) {
		t.Fatalf("unexpected transition time %v", unhappy.LastTransitionTime)
	}

	want := []ConditionType{testReady, testSinkProvided, testOther, testUnimportant}
	if diff := cmp.Diff(want, conds.Types()); diff != "" {
		t.Fatalf("inspection reordered the store (-want +got):\n%s", diff)
	}
}

func TestFindUnhappyDependentPrefersFalseOverNewerUnknown(t *testing.T) {
	conds := testSet.MustSeed(
		Condition{Type: testReady, Status: metav1.ConditionUnknown},
		Condition{Type: testSinkProvided, Status: metav1.ConditionFalse, LastTransitionTime: timePtr(epoch)},
		Condition{Type: testOther, Status: metav1.ConditionUnknown, LastTransitionTime: timePtr(epoch.Add(time.Hour))},
	)
	m := testSet.Manage(&conds)

	if got := m.findUnhappyDependent(); got == nil || got.Type != testSinkProvided {
		t.Fatalf("expected False dependent to win, got %+v", got)
	}
}

func TestNonTerminalConditionsDoNotMoveHappy(t *testing.T) {
	m, conds, clk := newTestManager(t)
	m.MarkTrue(testSinkProvided)
	before := conds.Get(testReady).DeepCopy()

	clk.Step(time.Second)
	m.MarkTrue(testUnimportant)
	m.MarkFalse(testUnimportant, "Meh", "not important")
	m.MarkTrueWithReason(testUnimportant, "Fine", "fine again")

	if diff := cmp.Diff(before, conds.Get(testReady)); diff != "" {
		t.Fatalf("informational condition moved happy (-want +got):\n%s", diff)
	}
	if got := m.GetCondition(testUnimportant).Severity; got != ConditionSeverityInfo {
		t.Fatalf("expected Info severity for informational type, got %q", got)
	}
}

func TestNonTerminalDoesNotMakeUnseededHappyTrue(t *testing.T) {
	conds := testSet.MustSeed(Condition{Type: testReady, Status: metav1.ConditionUnknown})
	m := testSet.Manage(&conds)

	m.MarkTrue(testUnimportant)
	if m.IsHappy() {
		t.Fatalf("informational condition must not make the resource ready")
	}
}

func TestMarkTrueWithReasonKeepsAnnotation(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.MarkTrue(testOther)
	m.MarkTrueWithReason(testSinkProvided, "Degraded", "using fallback sink %d", 2)

	got := m.GetCondition(testSinkProvided)
	if !got.IsTrue() || got.Reason != "Degraded" || got.Message != "using fallback sink 2" {
		t.Fatalf("unexpected condition %+v", got)
	}
	assertHappy(t, m, metav1.ConditionTrue, "", "")
}

func TestMarkTrueOnHappyDirectlyIsNotOverwrittenWhenAllTrue(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.MarkTrue(testSinkProvided)
	m.MarkTrue(testOther)

	m.MarkTrueWithReason(testReady, "Manual", "set by operator")
	assertHappy(t, m, metav1.ConditionTrue, "Manual", "set by operator")
}

func TestMarkTrueOnHappyIsCorrectedByFailingDependent(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.MarkFalse(testSinkProvided, "NoSink", "missing")

	m.MarkTrue(testReady)
	assertHappy(t, m, metav1.ConditionFalse, "NoSink", "missing")
}

func TestDependentRecoveryRestoresHappy(t *testing.T) {
	m, _, clk := newTestManager(t)
	m.MarkTrue(testOther)
	m.MarkFalse(testSinkProvided, "NoSink", "missing")

	clk.Step(time.Second)
	m.MarkTrue(testSinkProvided)
	assertHappy(t, m, metav1.ConditionTrue, "", "")
}

func TestGetTopLevelConditionPanicsWhenUninitialized(t *testing.T) {
	var conds Conditions
	m := testSet.Manage(&conds)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for missing happy condition")
		}
	}()
	m.IsHappy()
}

func TestInitializeConditionsAddsMissingTerminalTypes(t *testing.T) {
	conds := Conditions{{Type: testUnimportant, Status: metav1.ConditionTrue}, {Type: testOther, Status: metav1.ConditionTrue}}
	m := testSet.Manage(&conds)

	m.InitializeConditions()

	want := []ConditionType{testUnimportant, testOther, testReady, testSinkProvided}
	if diff := cmp.Diff(want, conds.Types()); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
	if !conds.Get(testOther).IsTrue() {
		t.Fatalf("existing condition was overwritten")
	}
	if !conds.Get(testSinkProvided).IsUnknown() {
		t.Fatalf("expected missing dependent to start Unknown")
	}
}

func TestManagePanicsOnNilStore(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	testSet.Manage(nil)
}
