package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"resona/logger"
	"resona/model"
	"resona/repository"
)

// Reconciler 把一张专辑的歌曲集合重整为调用方给出的目标集合。
// 歌曲到专辑是可空单值外键，所以"加入"目标集合之外还要摘除
// 当前属于该专辑但不在目标集合里的歌曲。
type Reconciler struct {
	songs  repository.SongRepository
	albums repository.AlbumRepository
	views  *Service

	// 同一专辑的并发重整请求互斥，避免交叉写入
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewReconciler(songs repository.SongRepository, albums repository.AlbumRepository, views *Service) *Reconciler {
	return &Reconciler{
		songs:  songs,
		albums: albums,
		views:  views,
		locks:  make(map[int64]*sync.Mutex),
	}
}

func (r *Reconciler) lockFor(albumID int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[albumID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[albumID] = lock
	}
	return lock
}

// ReconcileAlbumSongs makes the album own exactly the given songs.
//
// Songs in the set that already belong to the album stay untouched, unowned
// songs are attached, and songs currently on the album but missing from the
// set are detached. When any requested song is missing or owned by a
// different album the whole request fails with *ConflictError and nothing
// changes. A set equal to the current one performs no writes at all.
func (r *Reconciler) ReconcileAlbumSongs(ctx context.Context, albumID int64, songIDs []int64) (*model.AlbumWithSongs, error) {
	album, err := r.albums.GetAlbumByID(ctx, albumID)
	if err != nil {
		return nil, err
	}
	if album == nil {
		return nil, ErrAlbumNotFound
	}

	lock := r.lockFor(albumID)
	lock.Lock()
	defer lock.Unlock()

	desired := dedupe(songIDs)

	current, err := r.songs.GetSongIDsByAlbumID(ctx, albumID)
	if err != nil {
		return nil, err
	}

	// 目标集合与当前集合相同：幂等快速路径，不开事务
	if sameSet(current, desired) {
		logger.Debug("album songs already match, skipping reconcile",
			logger.Int64("albumId", albumID),
			logger.Int("songs", len(desired)))
		return r.views.AlbumWithSongs(ctx, album)
	}

	tx, err := r.songs.BeginTx(ctx)
	if err != nil {
		return nil, err
	}

	eligible, err := r.songs.EligibleSongIDsTx(tx, albumID, desired)
	if err != nil {
		r.songs.RollbackTx(tx)
		return nil, err
	}
	if len(eligible) != len(desired) {
		r.songs.RollbackTx(tx)
		conflict := &ConflictError{AlbumID: albumID, SongIDs: missingFrom(desired, eligible)}
		logger.Warn("album reconcile rejected",
			logger.Int64("albumId", albumID),
			logger.Any("conflictSongIds", conflict.SongIDs))
		return nil, conflict
	}

	toDetach := missingFrom(current, desired)
	if err := r.songs.ClearAlbumSongsTx(tx, albumID, toDetach); err != nil {
		r.songs.RollbackTx(tx)
		return nil, err
	}
	if err := r.songs.AssignSongsToAlbumTx(tx, albumID, desired); err != nil {
		r.songs.RollbackTx(tx)
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		r.songs.RollbackTx(tx)
		return nil, fmt.Errorf("failed to commit album reconcile: %w", err)
	}

	logger.Info("album songs reconciled",
		logger.Int64("albumId", albumID),
		logger.Int("assigned", len(desired)),
		logger.Int("detached", len(toDetach)))

	return r.views.AlbumWithSongs(ctx, album)
}

// dedupe returns the ids with duplicates removed, order preserved.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func sameSet(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[int64]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}

// missingFrom returns the ids present in want but not in have, sorted.
func missingFrom(want, have []int64) []int64 {
	set := make(map[int64]bool, len(have))
	for _, id := range have {
		set[id] = true
	}
	out := []int64{}
	for _, id := range want {
		if !set[id] {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
