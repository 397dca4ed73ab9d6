package cart

import (
	"errors"
	"fmt"
	"sync"

	"nightlife_order/constants"
	"nightlife_order/model"

	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrItemUnavailable = errors.New("menu item is not available")
	ErrItemNotInCart   = errors.New("item is not in the cart")
)

// Storage is durable device-local key/value storage holding JSON snapshots.
type Storage interface {
	Load(key string, v any) (bool, error)
	Save(key string, v any) error
	Delete(key string) error
}

type Item struct {
	MenuItemId  uint    `json:"menuItemId"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Category    string  `json:"category,omitempty"`
	ProductType string  `json:"productType,omitempty"`
}

func (i Item) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Store is the basket for one table. Every mutation is written through to storage.
type Store struct {
	mu      sync.Mutex
	storage Storage
	tableId uint
	key     string
	items   []Item
	log     *log.Entry
}

func Key(tableId uint) string {
	return fmt.Sprintf("%s%d", constants.KEY_CART_PREFIX, tableId)
}

// Open loads the persisted cart for tableId, starting empty when none exists.
func Open(storage Storage, tableId uint, logger *log.Entry) (*Store, error) {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	s := &Store{
		storage: storage,
		tableId: tableId,
		key:     Key(tableId),
		log:     logger.WithField("component", "cart").WithField("table", tableId),
	}
	if _, err := storage.Load(s.key, &s.items); err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return s, nil
}

// ResolvePrice returns the event override price when one is present and
// available, otherwise the item's default price.
func ResolvePrice(item model.MenuItem, override *model.EventMenu) float64 {
	if override != nil && model.Flag(override.Available) && override.CustomPrice != nil {
		return *override.CustomPrice
	}
	return item.DefaultPrice
}

func (s *Store) TableId() uint {
	return s.tableId
}

// AddItem puts qty units of the entry in the cart. The price is captured now;
// adding more of an item already in the cart keeps its original price.
func (s *Store) AddItem(entry model.MenuEntry, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if !model.Flag(entry.Available) {
		return ErrItemUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.copyItems()
	if i := indexOf(next, entry.ID); i >= 0 {
		next[i].Quantity += qty
	} else {
		next = append(next, Item{
			MenuItemId:  entry.ID,
			Name:        entry.Name,
			Price:       ResolvePrice(entry.MenuItem, entry.Override),
			Quantity:    qty,
			Category:    entry.CategoryName(),
			ProductType: entry.ProductType,
		})
	}
	return s.commit(next)
}

func (s *Store) RemoveItem(menuItemId uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(menuItemId)
}

// UpdateQuantity sets an item's quantity; zero removes it.
func (s *Store) UpdateQuantity(menuItemId uint, qty int) error {
	if qty < 0 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if qty == 0 {
		return s.removeLocked(menuItemId)
	}
	next := s.copyItems()
	i := indexOf(next, menuItemId)
	if i < 0 {
		return ErrItemNotInCart
	}
	next[i].Quantity = qty
	return s.commit(next)
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Delete(s.key); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	s.items = nil
	return nil
}

func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyItems()
}

func (s *Store) IsEmpty() bool {
	return s.TotalItems() == 0
}

func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

func (s *Store) TotalAmount() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Total(s.items)
}

// Total is the sum of price times quantity over items.
func Total(items []Item) float64 {
	var total float64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

func (s *Store) removeLocked(menuItemId uint) error {
	next := s.copyItems()
	i := indexOf(next, menuItemId)
	if i < 0 {
		return nil
	}
	next = append(next[:i], next[i+1:]...)
	return s.commit(next)
}

func (s *Store) commit(next []Item) error {
	if err := s.storage.Save(s.key, next); err != nil {
		s.log.WithError(err).Error("persist cart")
		return fmt.Errorf("save cart: %w", err)
	}
	s.items = next
	return nil
}

func (s *Store) copyItems() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func indexOf(items []Item, menuItemId uint) int {
	for i, it := range items {
		if it.MenuItemId == menuItemId {
			return i
		}
	}
	return -1
}
