package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrInvalidTaskID is returned by Join for a non-positive task id or a
// session bound to a different task.
var ErrInvalidTaskID = errors.New("invalid task id")

// PublishResult reports the outcome of a broadcast.
type PublishResult struct {
	// Delivered counts sessions whose queue accepted the frame.
	Delivered int
	// Dropped lists sessions that could not accept the frame. They have been
	// removed from the room.
	Dropped []*Session
}

type room struct {
	taskID int64

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	// closed is set when the room empties. A closed room is never reused.
	closed atomic.Bool
}

func (rm *room) snapshotLocked(exclude *Session) []*Session {
	members := make([]*Session, 0, len(rm.sessions))
	for _, s := range rm.sessions {
		if s != exclude {
			members = append(members, s)
		}
	}
	return members
}

// Registry maps task ids to the sessions currently viewing them. The map
// lock only guards room lookup and removal; membership and delivery are
// serialized per room.
type Registry struct {
	mu     sync.Mutex
	rooms  map[int64]*room
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		rooms:  make(map[int64]*room),
		logger: logger.With("component", "room_registry"),
	}
}

// liveRoom returns the open room for taskID, creating it if needed.
func (r *Registry) liveRoom(taskID int64) *room {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rm, ok := r.rooms[taskID]; ok && !rm.closed.Load() {
		return rm
	}
	rm := &room{taskID: taskID, sessions: make(map[uuid.UUID]*Session)}
	r.rooms[taskID] = rm
	return rm
}

func (r *Registry) lookup(taskID int64) *room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[taskID]
}

// Join adds s to the room for taskID and announces it to the other members.
func (r *Registry) Join(taskID int64, s *Session) error {
	if taskID <= 0 || s == nil || s.TaskID() != taskID {
		return fmt.Errorf("%w: %d", ErrInvalidTaskID, taskID)
	}

	for {
		rm := r.liveRoom(taskID)
		rm.mu.Lock()
		if rm.closed.Load() {
			// Emptied between lookup and lock; take a fresh entry.
			rm.mu.Unlock()
			continue
		}
		rm.sessions[s.ID()] = s
		size := len(rm.sessions)
		rm.mu.Unlock()

		r.logger.Debug("session joined room",
			"task_id", taskID,
			"session_id", s.ID(),
			"user_id", s.Principal().ID,
			"room_size", size)

		p := s.Principal()
		r.Broadcast(taskID, UserJoinedMessage{
			UserID:  p.ID,
			Message: fmt.Sprintf("%s 加入了留言", p.DisplayName()),
		}, s)
		return nil
	}
}

// Leave removes s from the room for taskID. The room is deleted once empty.
// Calling Leave for a session that is not a member is a no-op.
func (r *Registry) Leave(taskID int64, s *Session) {
	rm := r.lookup(taskID)
	if rm == nil || s == nil {
		return
	}

	rm.mu.Lock()
	if _, ok := rm.sessions[s.ID()]; !ok {
		rm.mu.Unlock()
		return
	}
	delete(rm.sessions, s.ID())
	empty := len(rm.sessions) == 0
	if empty {
		rm.closed.Store(true)
	}
	rm.mu.Unlock()

	r.logger.Debug("session left room",
		"task_id", taskID,
		"session_id", s.ID(),
		"room_closed", empty)

	if !empty {
		return
	}
	r.mu.Lock()
	if r.rooms[taskID] == rm {
		delete(r.rooms, taskID)
	}
	r.mu.Unlock()
}

// Broadcast queues msg for every member of the room except exclude. The
// member set is fixed under the room lock for the duration of delivery, so a
// concurrent Join or Leave lands entirely before or after it. Sessions that
// cannot accept the frame are evicted once the lock is released.
func (r *Registry) Broadcast(taskID int64, msg Outbound, exclude *Session) PublishResult {
	var result PublishResult

	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("failed to encode broadcast", "error", err, "task_id", taskID)
		return result
	}

	rm := r.lookup(taskID)
	if rm == nil {
		return result
	}

	rm.mu.Lock()
	for _, s := range rm.snapshotLocked(exclude) {
		if err := s.enqueue(data); err != nil {
			result.Dropped = append(result.Dropped, s)
			continue
		}
		result.Delivered++
	}
	rm.mu.Unlock()

	for _, s := range result.Dropped {
		r.logger.Warn("evicting session that cannot keep up",
			"task_id", taskID,
			"session_id", s.ID(),
			"user_id", s.Principal().ID)
		r.Leave(taskID, s)
	}
	return result
}

// RoomCount returns the number of rooms with at least one member.
func (r *Registry) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// SessionCount returns the number of sessions in the room for taskID.
func (r *Registry) SessionCount(taskID int64) int {
	rm := r.lookup(taskID)
	if rm == nil {
		return 0
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.sessions)
}

// TotalSessions returns the number of sessions across all rooms.
func (r *Registry) TotalSessions() int {
	r.mu.Lock()
	rooms := make([]*room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.Unlock()

	total := 0
	for _, rm := range rooms {
		rm.mu.Lock()
		total += len(rm.sessions)
		rm.mu.Unlock()
	}
	return total
}

// CloseAll closes every session with a going-away code. Sessions remove
// themselves from their rooms as their connections wind down.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	rooms := make([]*room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.Unlock()

	closed := 0
	for _, rm := range rooms {
		rm.mu.Lock()
		members := rm.snapshotLocked(nil)
		rm.mu.Unlock()
		for _, s := range members {
			s.CloseWith(websocket.CloseGoingAway, "server shutting down")
			closed++
		}
	}
	return closed
}
