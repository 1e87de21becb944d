// Пакет lifecycle — конечный автомат жизненного цикла резервной копии.
//
//	created → active → evicted | deleted
//
// evicted и deleted — конечные состояния. Копия в состоянии created
// существует только внутри операции создания: если сохранение реестра
// не удалось, она отбрасывается и в реестр не попадает.
package lifecycle

import (
	"fmt"

	"github.com/bigkaa/weldregistry/internal/domain/model"
)

// validTransitions — матрица допустимых переходов.
var validTransitions = map[model.SnapshotState]map[model.SnapshotState]bool{
	model.SnapshotCreated: {model.SnapshotActive: true},
	model.SnapshotActive:  {model.SnapshotEvicted: true, model.SnapshotDeleted: true},
	model.SnapshotEvicted: {},
	model.SnapshotDeleted: {},
}

// TransitionError — недопустимый переход состояния копии.
type TransitionError struct {
	From model.SnapshotState
	To   model.SnapshotState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("INVALID_TRANSITION: переход %s → %s недопустим", e.From, e.To)
}

// CanTransition проверяет допустимость перехода.
func CanTransition(from, to model.SnapshotState) bool {
	return validTransitions[from][to]
}

// Transition возвращает копию снапшота в новом состоянии.
func Transition(s model.Snapshot, to model.SnapshotState) (model.Snapshot, error) {
	if !CanTransition(s.State, to) {
		return s, &TransitionError{From: s.State, To: to}
	}
	s.State = to
	return s, nil
}

// IsTerminal сообщает, что из состояния нет переходов.
func IsTerminal(state model.SnapshotState) bool {
	return len(validTransitions[state]) == 0
}
