package library

import (
	"fmt"
	"strings"
)

// UserStore owns the user table. Email format and uniqueness are checked by
// LibraryManager, not here.
type UserStore struct {
	backend Backend
	records *collection[User]
	settings
}

func NewUserStore(backend Backend, opts ...Option) (*UserStore, error) {
	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	records, err := loadCollection(backend, userCodec, s.logger)
	if err != nil {
		return nil, err
	}
	return &UserStore{backend: backend, records: records, settings: s}, nil
}

func (s *UserStore) Add(user User) (User, error) {
	user, staged := s.records.prepareAdd(user)
	if err := s.save(staged); err != nil {
		return User{}, err
	}
	s.logger.Info(logMsgRecordAdded, logAttrTable, usersTable.Name, logAttrID, user.ID)
	s.publish(EventUserAdded, user.ID)
	return user, nil
}

func (s *UserStore) Update(user User) error {
	staged, ok := s.records.prepareReplace(user)
	if !ok {
		s.logger.Debug(logMsgRecordMissing, logAttrTable, usersTable.Name, logAttrID, user.ID)
		return fmt.Errorf("%w: %d", ErrUserNotFound, user.ID)
	}
	if err := s.save(staged); err != nil {
		return err
	}
	s.logger.Info(logMsgRecordUpdated, logAttrTable, usersTable.Name, logAttrID, user.ID)
	s.publish(EventUserUpdated, user.ID)
	return nil
}

func (s *UserStore) Delete(id int64) error {
	staged, ok := s.records.prepareRemove(id)
	if !ok {
		s.logger.Debug(logMsgRecordMissing, logAttrTable, usersTable.Name, logAttrID, id)
		return fmt.Errorf("%w: %d", ErrUserNotFound, id)
	}
	if err := s.save(staged); err != nil {
		return err
	}
	s.logger.Info(logMsgRecordDeleted, logAttrTable, usersTable.Name, logAttrID, id)
	s.publish(EventUserDeleted, id)
	return nil
}

func (s *UserStore) List() []User { return s.records.list() }

func (s *UserStore) FindByID(id int64) (User, bool) { return s.records.findByID(id) }

func (s *UserStore) FindByEmail(email string) (User, bool) {
	email = strings.TrimSpace(email)
	return s.records.find(func(u User) bool { return strings.EqualFold(u.Email, email) })
}

// Search matches query against name or email, ignoring case.
func (s *UserStore) Search(query string) []User {
	return s.records.filter(func(u User) bool {
		return containsFold(u.Name, query) || containsFold(u.Email, query)
	})
}

func (s *UserStore) save(staged []User) error {
	if err := s.backend.Save(s.records.snapshot(staged)); err != nil {
		s.logger.Error(logMsgPersistFailed, logAttrTable, usersTable.Name, logAttrError, err.Error())
		return fmt.Errorf("save %s: %w: %w", usersTable.Name, ErrPersistence, err)
	}
	s.records.commit(staged)
	return nil
}
