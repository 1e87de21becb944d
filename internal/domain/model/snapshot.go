// snapshot.go — резервные копии реестров и журнал изменений.
package model

import "time"

// SnapshotState — состояние резервной копии.
type SnapshotState string

const (
	// SnapshotCreated — копия сформирована, но ещё не сохранена в реестре
	SnapshotCreated SnapshotState = "created"
	// SnapshotActive — копия хранится в реестре
	SnapshotActive SnapshotState = "active"
	// SnapshotEvicted — вытеснена по лимиту количества копий
	SnapshotEvicted SnapshotState = "evicted"
	// SnapshotDeleted — удалена пользователем
	SnapshotDeleted SnapshotState = "deleted"
)

// Snapshot — неизменяемая резервная копия всех четырёх реестров.
type Snapshot struct {
	ID          string        `json:"id"`
	Timestamp   time.Time     `json:"timestamp"`
	Description string        `json:"description"`
	Version     string        `json:"version"`
	State       SnapshotState `json:"state"`
	Data        Dataset       `json:"data"`
	Metadata    Counts        `json:"metadata"`
}

// SnapshotInfo — сведения о копии без тела данных (для списка).
type SnapshotInfo struct {
	ID           string        `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	Description  string        `json:"description"`
	Version      string        `json:"version"`
	State        SnapshotState `json:"state"`
	Metadata     Counts        `json:"metadata"`
	TotalRecords int           `json:"totalRecords"`
}

// Info возвращает сведения о копии без данных.
func (s Snapshot) Info() SnapshotInfo {
	return SnapshotInfo{
		ID:           s.ID,
		Timestamp:    s.Timestamp,
		Description:  s.Description,
		Version:      s.Version,
		State:        s.State,
		Metadata:     s.Metadata,
		TotalRecords: s.Metadata.Total(),
	}
}

// Commit — запись журнала изменений.
type Commit struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	Changes   Changes   `json:"changes"`
}

// Changes — описание изменений, приложенное к коммиту.
type Changes struct {
	Timestamp time.Time `json:"timestamp"`
	Summary   string    `json:"summary"`
	Counts    *Counts   `json:"counts,omitempty"`
}
