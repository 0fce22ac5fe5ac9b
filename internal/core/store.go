package core

import (
	"sync"
)

// Store is the in-memory record list and site configuration of a process.
// Every mutation bumps Version so readers can key caches on it.
type Store struct {
	mu      sync.RWMutex
	site    SiteConfig
	records []Record
	version uint64
}

// NewStore returns an empty store with the default site configuration.
func NewStore() *Store {
	return &Store{site: DefaultSiteConfig()}
}

// Replace swaps the whole content for the given document.
func (s *Store) Replace(d Document) {
	records := make([]Record, len(d.TransactionData))
	copy(records, d.TransactionData)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.site = d.Site()
	s.records = records
	s.version++
}

// Snapshot assembles the document to persist from the current state.
func (s *Store) Snapshot() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site := s.site
	return Document{SiteConfig: &site, TransactionData: s.copyRecords()}
}

// Records returns a copy of the records in insertion order.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyRecords()
}

func (s *Store) copyRecords() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store) Site() SiteConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.site
}

func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Get returns the record with the given id.
func (s *Store) Get(id int) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.records[i], nil
	}
	return Record{}, ErrNotFound
}

// Add validates r, assigns it max(id)+1 and appends it.
func (s *Store) Add(r Record) (Record, error) {
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.maxID() + 1
	s.records = append(s.records, r)
	s.version++
	return r, nil
}

// Update replaces the fields of record id in place, keeping its position.
func (s *Store) Update(id int, r Record) (Record, error) {
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return Record{}, ErrNotFound
	}
	r.ID = id
	s.records[i] = r
	s.version++
	return r, nil
}

// Delete removes record id.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	s.version++
	return nil
}

// Import appends rows without validation, numbering them max(id)+1..max(id)+n
// so imported ids never collide with existing ones.
func (s *Store) Import(rows []Record) []Record {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.maxID()
	added := make([]Record, len(rows))
	for i, r := range rows {
		next++
		r.ID = next
		added[i] = r
	}
	s.records = append(s.records, added...)
	s.version++
	return added
}

// UpdateSite merges the non-empty fields of update into the site config.
func (s *Store) UpdateSite(update SiteConfig) SiteConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.site = s.site.Merge(update)
	s.version++
	return s.site
}

// CheckPassword compares the admin password in clear.
func (s *Store) CheckPassword(password string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return password != "" && password == s.site.AdminPassword
}

// NextID returns the id the next added record will receive.
func (s *Store) NextID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxID() + 1
}

func (s *Store) maxID() int {
	max := 0
	for _, r := range s.records {
		if r.ID > max {
			max = r.ID
		}
	}
	return max
}

func (s *Store) indexOf(id int) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}
