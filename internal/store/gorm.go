package store

import (
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore is the production Store backed by Postgres.
type GormStore struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Room{}, &Game{}, &Move{}, &User{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) CreateRoom(r *Room) error {
	return s.db.Create(r).Error
}

func (s *GormStore) GetRoom(code string) (*Room, error) {
	var r Room
	if err := s.db.First(&r, "code = ?", code).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &r, nil
}

func (s *GormStore) SaveRoom(r *Room) error {
	return s.db.Save(r).Error
}

func (s *GormStore) SetRoomStatus(code string, status RoomStatus) error {
	res := s.db.Model(&Room{}).Where("code = ?", code).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateGame(g *Game) error {
	return s.db.Create(g).Error
}

func (s *GormStore) GetGame(id string) (*Game, error) {
	var g Game
	if err := s.db.First(&g, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &g, nil
}

func (s *GormStore) ActiveGameForRoom(roomCode string) (*Game, error) {
	var g Game
	err := s.db.First(&g, "room_code = ? AND status = ?", roomCode, GameActive).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &g, nil
}

func (s *GormStore) ActiveGameForUser(userID string) (*Game, error) {
	var g Game
	err := s.db.
		First(&g, "(player_x_id = ? OR player_o_id = ?) AND status = ?", userID, userID, GameActive).
		Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &g, nil
}

func (s *GormStore) ActiveGamesOlderThan(cutoff time.Time) ([]Game, error) {
	var games []Game
	err := s.db.
		Where("status = ? AND last_move_at < ?", GameActive, cutoff).
		Find(&games).Error
	return games, err
}

func (s *GormStore) SaveGame(g *Game) error {
	return s.db.Save(g).Error
}

func (s *GormStore) TransitionGame(id string, to GameStatus, winner *string, reason string) (*Game, error) {
	res := s.db.Model(&Game{}).
		Where("id = ? AND status = ?", id, GameActive).
		Updates(map[string]interface{}{
			"status":     to,
			"winner":     winner,
			"win_reason": reason,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetGame(id); err != nil {
			return nil, err
		}
		return nil, ErrStatusConflict
	}
	return s.GetGame(id)
}

func (s *GormStore) AppendMove(m *Move) error {
	return s.db.Create(m).Error
}

func (s *GormStore) MovesForGame(gameID string) ([]Move, error) {
	var moves []Move
	err := s.db.Where("game_id = ?", gameID).Order("seq ASC").Find(&moves).Error
	return moves, err
}

func (s *GormStore) UpsertUser(id, name string) error {
	var u User
	err := s.db.First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(&User{ID: id, Name: name}).Error
	}
	if err != nil {
		return err
	}
	if name != "" && name != u.Name {
		return s.db.Model(&u).Update("name", name).Error
	}
	return nil
}

func (s *GormStore) GetUser(id string) (*User, error) {
	var u User
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &u, nil
}

func (s *GormStore) RecordResult(winnerID, loserID string, draw bool) error {
	if draw {
		for _, id := range []string{winnerID, loserID} {
			if id == "" {
				continue
			}
			if err := s.bump(id, "draws"); err != nil {
				return err
			}
		}
		return nil
	}
	if winnerID != "" {
		if err := s.bump(winnerID, "wins"); err != nil {
			return err
		}
	}
	if loserID != "" {
		if err := s.bump(loserID, "losses"); err != nil {
			return err
		}
	}
	return nil
}

func (s *GormStore) bump(userID, column string) error {
	return s.db.Model(&User{}).
		Where("id = ?", userID).
		Update(column, gorm.Expr(column+" + 1")).Error
}
