package jobstore

import "github.com/nikhilbhutani/podcastai/internal/models"

// Subscribe returns a channel that receives the latest snapshot of the job
// after every change. Slow readers only ever see the most recent state. The
// channel is closed when the job is swept or the returned cancel func runs.
// ok is false when the job does not exist.
func (s *Store) Subscribe(id string) (updates <-chan models.Job, cancel func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, func() {}, false
	}

	ch := make(chan models.Job, 1)
	ch <- snapshot(job)

	if s.subs[id] == nil {
		s.subs[id] = make(map[chan models.Job]struct{})
	}
	s.subs[id][ch] = struct{}{}

	cancel = func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if set, found := s.subs[id]; found {
			if _, live := set[ch]; live {
				delete(set, ch)
				close(ch)
				if len(set) == 0 {
					delete(s.subs, id)
				}
			}
		}
	}
	return ch, cancel, true
}

// publishLocked replaces any unread snapshot with the new one. Callers hold s.mu,
// so this is the only sender and the second send cannot block.
func (s *Store) publishLocked(job models.Job) {
	for ch := range s.subs[job.ID] {
		select {
		case ch <- job:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- job
		}
	}
}

func (s *Store) closeSubsLocked(id string) {
	for ch := range s.subs[id] {
		close(ch)
	}
	delete(s.subs, id)
}
