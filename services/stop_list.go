package services

import (
	"context"

	"stoplist-telegram/models"
)

// StopListService applies operator edits to the stop-list through the repository.
type StopListService struct {
	repo *StateRepository
}

func NewStopListService(repo *StateRepository) *StopListService {
	return &StopListService{repo: repo}
}

// Current returns a freshly loaded stop-list.
func (s *StopListService) Current(ctx context.Context) models.StopList {
	return s.repo.LoadState(ctx).StopList
}

// Add puts one dish on the stop-list. Adding a listed dish changes nothing
// and reports Unchanged.
func (s *StopListService) Add(ctx context.Context, dishID int) (models.StopList, SaveOutcome, error) {
	st, out, err := s.repo.Update(ctx, func(st *models.State) (bool, error) {
		return st.StopList.Add(dishID), nil
	})
	return st.StopList, out, err
}

// AddAll puts every dish not yet listed on the stop-list and returns how
// many were added.
func (s *StopListService) AddAll(ctx context.Context, dishIDs []int) (int, models.StopList, SaveOutcome, error) {
	var added int
	st, out, err := s.repo.Update(ctx, func(st *models.State) (bool, error) {
		added = st.StopList.AddAll(dishIDs)
		return added > 0, nil
	})
	return added, st.StopList, out, err
}

// Remove takes a dish off the stop-list. removed is false when it was not listed.
func (s *StopListService) Remove(ctx context.Context, dishID int) (removed bool, list models.StopList, out SaveOutcome, err error) {
	st, out, err := s.repo.Update(ctx, func(st *models.State) (bool, error) {
		removed = st.StopList.Remove(dishID)
		return removed, nil
	})
	return removed, st.StopList, out, err
}

// Clear empties the stop-list. It always writes, even when the list is
// already empty, so a stale backend is overwritten too.
func (s *StopListService) Clear(ctx context.Context) SaveOutcome {
	_, out, _ := s.repo.Update(ctx, func(st *models.State) (bool, error) {
		st.StopList = models.StopList{}
		return true, nil
	})
	return out
}
