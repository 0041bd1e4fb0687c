package card

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

// NotFoundError reports an operation against a card ID that is not in the
// store. Callers surface it per-operation; it is never fatal.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("card not found: %s", e.ID)
}

// ChangeHandler receives the full card list, sorted by timestamp descending,
// after every committed change.
type ChangeHandler func([]*Card)

// ErrorHandler receives subscription-level failures.
type ErrorHandler func(error)

// DB defines the interface for card database operations
type DB interface {
	// SaveCard creates or replaces a card by ID
	SaveCard(card *Card) error

	// GetCard retrieves a card by ID
	GetCard(id string) (*Card, error)

	// ListCards returns all cards sorted by timestamp descending
	ListCards() ([]*Card, error)

	// DeleteCard removes a card from the database
	DeleteCard(id string) error

	// Subscribe registers a live feed over the card list. The handler is
	// called once with the current list and again after every change. The
	// returned function tears the subscription down.
	Subscribe(onChange ChangeHandler, onError ErrorHandler) (func(), error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db     *bbolt.DB
	bucket []byte

	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	seq    uint64
}

// listSnapshot pairs a card list with the sequence number of the change that
// produced it, so deliveries can be ordered.
type listSnapshot struct {
	seq   uint64
	cards []*Card
}

// subscriber delivers list snapshots on its own goroutine so a slow consumer
// never blocks a writer. The channel holds one pending snapshot; a newer one
// replaces it, and anything older than the last delivery is discarded.
type subscriber struct {
	onChange ChangeHandler
	onError  ErrorHandler
	snapshot chan listSnapshot
	failure  chan error
	done     chan struct{}
}

func (s *subscriber) run() {
	var lastSeq uint64
	for {
		select {
		case <-s.done:
			return
		case snap := <-s.snapshot:
			if snap.seq < lastSeq {
				continue
			}
			lastSeq = snap.seq
			s.onChange(snap.cards)
		case err := <-s.failure:
			s.onError(err)
		}
	}
}

// NewBoltDB creates a new BoltDB instance. The bucket holding the cards is
// scoped by the configured application identifier, so several deployments can
// share one database file.
func NewBoltDB(path string, appID string) (*BoltDB, error) {
	if appID == "" {
		appID = "default"
	}
	bucket := []byte("cards_" + appID)

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltDB{
		db:     db,
		bucket: bucket,
		subs:   make(map[int]*subscriber),
	}, nil
}

// SaveCard creates or replaces a card by ID
func (b *BoltDB) SaveCard(card *Card) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		data, err := json.Marshal(card)
		if err != nil {
			return fmt.Errorf("marshaling card: %w", err)
		}
		return bucket.Put([]byte(card.ID), data)
	})
	if err != nil {
		return err
	}
	b.notify()
	return nil
}

// GetCard retrieves a card by ID
func (b *BoltDB) GetCard(id string) (*Card, error) {
	var card *Card
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		data := bucket.Get([]byte(id))
		if data == nil {
			return &NotFoundError{ID: id}
		}
		return json.Unmarshal(data, &card)
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// ListCards returns all cards sorted by timestamp descending
func (b *BoltDB) ListCards() ([]*Card, error) {
	cards := make([]*Card, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		return bucket.ForEach(func(k, v []byte) error {
			var card Card
			if err := json.Unmarshal(v, &card); err != nil {
				return fmt.Errorf("unmarshaling card: %w", err)
			}
			cards = append(cards, &card)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortCards(cards)
	return cards, nil
}

// DeleteCard removes a card from the database. Deleting an ID that is not
// present returns a NotFoundError.
func (b *BoltDB) DeleteCard(id string) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		if bucket.Get([]byte(id)) == nil {
			return &NotFoundError{ID: id}
		}
		return bucket.Delete([]byte(id))
	})
	if err != nil {
		return err
	}
	b.notify()
	return nil
}

// Subscribe registers a live feed over the card list
func (b *BoltDB) Subscribe(onChange ChangeHandler, onError ErrorHandler) (func(), error) {
	if onError == nil {
		onError = func(error) {}
	}

	s := &subscriber{
		onChange: onChange,
		onError:  onError,
		snapshot: make(chan listSnapshot, 1),
		failure:  make(chan error, 1),
		done:     make(chan struct{}),
	}

	// The initial read and the registration happen under the same lock the
	// write path notifies under, so a commit can never land between them and
	// go undelivered.
	b.mu.Lock()
	cards, err := b.ListCards()
	if err != nil {
		b.mu.Unlock()
		return nil, fmt.Errorf("loading initial card list: %w", err)
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	s.snapshot <- listSnapshot{seq: b.seq, cards: cards}
	b.mu.Unlock()

	go s.run()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub.done)
		}
	}
	return unsubscribe, nil
}

// notify fans the current sorted list out to every subscriber after a
// committed change. Snapshot reads are serialized under the lock and stamped
// with a monotonic sequence, so a subscriber that has not consumed its
// previous snapshot only sees the newest one and a racing pair of writes can
// never deliver the older list last.
func (b *BoltDB) notify() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.subs) == 0 {
		return
	}

	cards, err := b.ListCards()
	b.seq++
	snap := listSnapshot{seq: b.seq, cards: cards}
	for _, s := range b.subs {
		if err != nil {
			select {
			case s.failure <- err:
			default:
			}
			continue
		}
		select {
		case s.snapshot <- snap:
		default:
			// Drop the stale snapshot, then queue the fresh one.
			select {
			case <-s.snapshot:
			default:
			}
			select {
			case s.snapshot <- snap:
			default:
			}
		}
	}
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	b.mu.Lock()
	for id, s := range b.subs {
		delete(b.subs, id)
		close(s.done)
	}
	b.mu.Unlock()
	return b.db.Close()
}

// sortCards orders a list by timestamp descending. Ties land in arbitrary
// order; stable order across ties is not guaranteed.
func sortCards(cards []*Card) {
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].Timestamp > cards[j].Timestamp
	})
}
