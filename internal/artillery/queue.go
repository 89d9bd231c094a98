package artillery

import (
	"sync"
	"time"
)

type queueEntry struct {
	playerID string
	joinedAt time.Time
}

// Queue pairs players waiting for a match of the same difficulty, first
// come first served.
type Queue struct {
	mu      sync.Mutex
	waiting map[Difficulty][]queueEntry
}

func NewQueue() *Queue {
	return &Queue{waiting: make(map[Difficulty][]queueEntry)}
}

// Match is a pair taken off the queue. First waited longer and takes the
// first shot.
type Match struct {
	First      string
	Second     string
	Difficulty Difficulty
	Waited     time.Duration
}

// Join queues playerID. If someone else is already waiting at the same
// difficulty both leave the queue and the match is returned. Otherwise the
// player's place in that difficulty's line is returned.
func (q *Queue) Join(playerID string, d Difficulty) (*Match, int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.removeLocked(playerID)
	line := q.waiting[d]
	if len(line) > 0 {
		head := line[0]
		q.waiting[d] = line[1:]
		return &Match{
			First:      head.playerID,
			Second:     playerID,
			Difficulty: d,
			Waited:     time.Since(head.joinedAt),
		}, 0
	}
	q.waiting[d] = append(line, queueEntry{playerID: playerID, joinedAt: time.Now()})
	return nil, len(q.waiting[d])
}

// Leave drops playerID from whichever line it is in.
func (q *Queue) Leave(playerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(playerID)
}

func (q *Queue) removeLocked(playerID string) bool {
	for d, line := range q.waiting {
		for i, e := range line {
			if e.playerID == playerID {
				q.waiting[d] = append(line[:i], line[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Lengths reports how many players wait at each difficulty.
func (q *Queue) Lengths() map[Difficulty]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := map[Difficulty]int{Easy: 0, Medium: 0, Hard: 0}
	for d, line := range q.waiting {
		out[d] = len(line)
	}
	return out
}
