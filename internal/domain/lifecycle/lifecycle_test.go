package lifecycle

import (
	"errors"
	"testing"

	"github.com/bigkaa/weldregistry/internal/domain/model"
)

func TestTransitions(t *testing.T) {
	tests := []struct {
		from, to model.SnapshotState
		want     bool
	}{
		{model.SnapshotCreated, model.SnapshotActive, true},
		{model.SnapshotActive, model.SnapshotEvicted, true},
		{model.SnapshotActive, model.SnapshotDeleted, true},
		{model.SnapshotCreated, model.SnapshotDeleted, false},
		{model.SnapshotEvicted, model.SnapshotActive, false},
		{model.SnapshotDeleted, model.SnapshotActive, false},
		{model.SnapshotActive, model.SnapshotCreated, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, ожидалось %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTransitionKeepsOriginal(t *testing.T) {
	s := model.Snapshot{ID: "1", State: model.SnapshotCreated}
	active, err := Transition(s, model.SnapshotActive)
	if err != nil {
		t.Fatalf("Transition() ошибка: %v", err)
	}
	if active.State != model.SnapshotActive || s.State != model.SnapshotCreated {
		t.Errorf("состояния: новое %s, исходное %s", active.State, s.State)
	}

	_, err = Transition(active, model.SnapshotCreated)
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("ожидалась TransitionError, получено %v", err)
	}
	if te.From != model.SnapshotActive || te.To != model.SnapshotCreated {
		t.Errorf("TransitionError = %+v", te)
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(model.SnapshotEvicted) || !IsTerminal(model.SnapshotDeleted) {
		t.Error("evicted и deleted должны быть конечными")
	}
	if IsTerminal(model.SnapshotActive) {
		t.Error("active не должно быть конечным")
	}
}
