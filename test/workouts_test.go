package test

import (
	"context"
	"net/http"
	"sync"

	"github.com/2beens/ninjatraining/internal/progress"
	"github.com/2beens/ninjatraining/internal/workouts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestWorkoutsProgress() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token, _ := s.signUpAndLogin(ctx)

	resp := s.doJSON(ctx, http.MethodGet, "/progress", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p workouts.ProgressResponse
	decodeBody(t, resp, &p)
	assert.Equal(t, 1, p.Level)
	assert.Zero(t, p.Experience)
	assert.Zero(t, p.Streak)
	assert.Equal(t, 1, p.CurrentAvatar.ID)
	assert.Empty(t, p.WorkoutDays)

	completed := true
	days := []string{"2025-03-01", "2025-03-02", "2025-03-03"}

	// back-dating needs the scroll password
	resp = s.doJSON(ctx, http.MethodPost, "/workouts/checkin", token, workouts.CheckInRequest{
		Completed: &completed,
		Date:      days[0],
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	var last workouts.CheckInResponse
	for _, day := range days {
		resp = s.doScrollJSON(ctx, http.MethodPost, "/workouts/checkin", token, workouts.CheckInRequest{
			Completed: &completed,
			Date:      day,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode, day)
		decodeBody(t, resp, &last)
		assert.True(t, last.Recorded)
	}

	// 3 x 50 experience, 100 of it spent on leaving level 1
	assert.Equal(t, 2, last.Progress.Level)
	assert.Equal(t, 50, last.Progress.Experience)
	assert.Equal(t, 200, last.Progress.ExperienceToNextLevel)
	assert.Equal(t, 3, last.Progress.Streak)

	// duplicate day is rejected by the test config policy
	resp = s.doScrollJSON(ctx, http.MethodPost, "/workouts/checkin", token, workouts.CheckInRequest{
		Completed: &completed,
		Date:      days[0],
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = s.doJSON(ctx, http.MethodGet, "/workouts/calendar/2025/3", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var calendar workouts.CalendarResponse
	decodeBody(t, resp, &calendar)
	require.Len(t, calendar.Days, 3)
	assert.Equal(t, progress.NewDate(2025, 3, 1), calendar.Days[0].Date)

	resp = s.doJSON(ctx, http.MethodGet, "/workouts/calendar/2025/4", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &calendar)
	assert.Empty(t, calendar.Days)
}

func (s *IntegrationTestSuite) TestWorkoutsConcurrentCheckIns() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token, _ := s.signUpAndLogin(ctx)

	resp := s.doJSON(ctx, http.MethodGet, "/progress", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	completed := true
	days := []string{"2025-06-01", "2025-06-10"}
	statuses := make([]int, len(days))
	var wg sync.WaitGroup
	for i, day := range days {
		wg.Add(1)
		go func(i int, day string) {
			defer wg.Done()
			resp := s.doScrollJSON(ctx, http.MethodPost, "/workouts/checkin", token, workouts.CheckInRequest{
				Completed: &completed,
				Date:      day,
			})
			statuses[i] = resp.StatusCode
			resp.Body.Close()
		}(i, day)
	}
	wg.Wait()

	for i, status := range statuses {
		assert.Equal(t, http.StatusCreated, status, days[i])
	}

	// both awards count: 2 x 50 experience levels the user up exactly once
	resp = s.doJSON(ctx, http.MethodGet, "/progress", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p workouts.ProgressResponse
	decodeBody(t, resp, &p)
	assert.Equal(t, 2, p.Level)
	assert.Zero(t, p.Experience)
	assert.Len(t, p.WorkoutDays, 2)
}

func (s *IntegrationTestSuite) TestWorkoutsChangeAvatar() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token, _ := s.signUpAndLogin(ctx)

	// level 1 user cannot pick the Genin avatar
	resp := s.doJSON(ctx, http.MethodPut, "/progress/avatar", token, workouts.ChangeAvatarRequest{AvatarID: 2})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = s.doJSON(ctx, http.MethodPut, "/progress/avatar", token, workouts.ChangeAvatarRequest{AvatarID: 42})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	completed := true
	experience := 1000
	resp = s.doScrollJSON(ctx, http.MethodPost, "/workouts/checkin", token, workouts.CheckInRequest{
		Completed:  &completed,
		Date:       "2025-05-10",
		Experience: &experience,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var checkIn workouts.CheckInResponse
	decodeBody(t, resp, &checkIn)
	assert.Equal(t, 5, checkIn.Progress.Level)
	assert.Equal(t, 4, checkIn.LevelsGained)
	assert.Zero(t, checkIn.Progress.Experience)
	require.Len(t, checkIn.UnlockedAvatars, 1)
	assert.Equal(t, 2, checkIn.UnlockedAvatars[0].ID)
	assert.Equal(t, 2, checkIn.Progress.CurrentAvatar.ID)

	resp = s.doJSON(ctx, http.MethodPut, "/progress/avatar", token, workouts.ChangeAvatarRequest{AvatarID: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p workouts.ProgressResponse
	decodeBody(t, resp, &p)
	assert.Equal(t, 1, p.CurrentAvatar.ID)
	assert.Len(t, p.AvailableAvatars, 2)

	resp = s.doJSON(ctx, http.MethodPut, "/progress/avatar", token, workouts.ChangeAvatarRequest{AvatarID: 3})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}
