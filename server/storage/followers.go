package storage

import (
	"errors"

	"gorm.io/gorm"
)

const (
	FollowPending  = "pending"
	FollowAccepted = "accepted"
)

// Follow is a remote actor following a local user
type Follow struct {
	Owner         string `gorm:"primaryKey"` // local user name
	ID            string `gorm:"primaryKey"` // remote actor id
	RequestID     string // id of the Follow activity
	RequestStatus string // pending or accepted
}

type Followers interface {
	GetFollowers() ([]Follow, error)
	FindFollow(id string) (*Follow, error)
	SaveFollow(f Follow) error
	DeleteFollow(id string) error
}

// followers is the Followers view of a single local user
type followers struct {
	db    *sqliteDatabase
	owner string
}

// FollowersOf returns the followers of a local user.
func (s *sqliteDatabase) FollowersOf(owner string) Followers {
	return &followers{db: s, owner: owner}
}

func (f *followers) GetFollowers() ([]Follow, error) {
	var list []Follow
	tx := f.db.db.Where(&Follow{Owner: f.owner}).Order("id").Find(&list)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return list, nil
}

func (f *followers) FindFollow(id string) (*Follow, error) {
	var follow Follow
	tx := f.db.db.First(&follow, &Follow{Owner: f.owner, ID: id})
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if tx.Error != nil {
		return nil, tx.Error
	}
	return &follow, nil
}

func (f *followers) SaveFollow(follow Follow) error {
	follow.Owner = f.owner
	tx := f.db.db.Save(&follow)
	return tx.Error
}

func (f *followers) DeleteFollow(id string) error {
	tx := f.db.db.Delete(&Follow{Owner: f.owner, ID: id})
	return tx.Error
}
