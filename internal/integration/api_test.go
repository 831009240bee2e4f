//go:build integration_test || all_tests

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/2beens/workouttracker/internal"
	"github.com/2beens/workouttracker/internal/client"
	"github.com/2beens/workouttracker/internal/routines"
	"github.com/2beens/workouttracker/internal/users"
	"github.com/2beens/workouttracker/internal/workouts"
	"github.com/2beens/workouttracker/internal/workouts/engine"

	"github.com/brianvoe/gofakeit/v6"
)

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func (s *IntegrationTestSuite) newRoutineRequest() routines.CreateRequest {
	return routines.CreateRequest{
		Name:        gofakeit.HipsterWord() + " day",
		Description: gofakeit.Sentence(6),
		Exercises: []routines.ExerciseRequest{
			{Name: "Squat", Type: "reps", Sets: intPtr(3), Reps: intPtr(8), Weight: floatPtr(60)},
			{Name: "Plank", Type: "timed", Duration: floatPtr(0.05), Unit: "minutes", Notes: "keep hips level"},
		},
	}
}

func (s *IntegrationTestSuite) TestHealth() {
	resp, err := http.Get(serverEndpoint + "/api/health")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
	var health internal.HealthResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&health))
	s.Equal("ok", health.Status)
	s.Equal("ok", health.Checks["postgres"])
	s.Equal("ok", health.Checks["redis"])
}

func (s *IntegrationTestSuite) TestRegisterAndLogin() {
	ctx := context.Background()
	c, username := s.newUser(ctx)

	me, err := c.Me(ctx)
	s.Require().NoError(err)
	s.Equal(username, me.Username)
	s.False(me.IsAdmin)
	s.Equal(1, s.count(`SELECT COUNT(*) FROM users WHERE username = $1 AND role = 'user'`, username))

	other, err := client.New(serverEndpoint)
	s.Require().NoError(err)

	err = other.Register(ctx, username, "Passw0rdX")
	var apiErr *client.APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusBadRequest, apiErr.StatusCode)
	s.Equal("username", apiErr.Field)

	err = other.Register(ctx, "x"+username, "weak")
	s.Require().ErrorAs(err, &apiErr)
	s.Equal("password", apiErr.Field)

	err = other.Register(ctx, "Admin", "Passw0rdX")
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusBadRequest, apiErr.StatusCode)
	s.Equal("username", apiErr.Field)
	s.Equal(0, s.count(`SELECT COUNT(*) FROM users WHERE username = 'Admin'`))

	_, err = other.Login(ctx, username, "WrongPass1")
	s.True(client.IsStatus(err, http.StatusUnauthorized))

	s.Require().NoError(c.Logout(ctx))
	_, err = c.Me(ctx)
	s.True(client.IsStatus(err, http.StatusUnauthorized))
}

func (s *IntegrationTestSuite) TestRoutineLifecycle() {
	ctx := context.Background()
	c, _ := s.newUser(ctx)

	req := s.newRoutineRequest()
	id, err := c.CreateRoutine(ctx, req)
	s.Require().NoError(err)
	s.Positive(id)
	s.Equal(2, s.count(`SELECT COUNT(*) FROM exercises WHERE routine_id = $1`, id))

	routine, err := c.GetRoutine(ctx, id)
	s.Require().NoError(err)
	s.Equal(req.Name, routine.Name)
	s.Require().Len(routine.Exercises, 2)
	s.Equal("Squat", routine.Exercises[0].Name)
	s.Equal(0, routine.Exercises[0].OrderIndex)
	s.Equal(routines.KindTimed, routine.Exercises[1].Kind)
	s.Require().NotNil(routine.Exercises[1].DurationSeconds)
	s.Equal(3, *routine.Exercises[1].DurationSeconds, "minutes stored as seconds")
	s.Equal("keep hips level", routine.Exercises[1].Notes)

	list, err := c.ListRoutines(ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(2, list[0].ExerciseCount)

	// other users never see it
	stranger, _ := s.newUser(ctx)
	_, err = stranger.GetRoutine(ctx, id)
	s.True(client.IsStatus(err, http.StatusNotFound))
	s.True(client.IsStatus(stranger.DeleteRoutine(ctx, id), http.StatusNotFound))

	_, err = c.CreateRoutine(ctx, routines.CreateRequest{Name: "empty"})
	var apiErr *client.APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal("exercises", apiErr.Field)

	s.Require().NoError(c.DeleteRoutine(ctx, id))
	_, err = c.GetRoutine(ctx, id)
	s.True(client.IsStatus(err, http.StatusNotFound))
	s.Equal(0, s.count(`SELECT COUNT(*) FROM exercises WHERE routine_id = $1`, id))
}

func (s *IntegrationTestSuite) TestWorkoutSession() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	c, _ := s.newUser(ctx)

	routineID, err := c.CreateRoutine(ctx, s.newRoutineRequest())
	s.Require().NoError(err)

	_, err = c.StartWorkout(ctx, routineID+1000)
	s.True(client.IsStatus(err, http.StatusNotFound))

	started, err := c.StartWorkout(ctx, routineID)
	s.Require().NoError(err)
	s.Require().Len(started.Exercises, 2)
	s.Equal(1, s.count(`SELECT COUNT(*) FROM workout_sessions WHERE id = $1 AND status = 'in_progress'`, started.SessionID))

	// an exercise outside the session is rejected and nothing changes
	err = c.CompleteWorkout(ctx, started.SessionID, workouts.CompleteRequest{
		Duration:     10,
		ExerciseLogs: []workouts.ExerciseLog{{ExerciseID: started.Exercises[0].ID + 1000, Reps: 1}},
	})
	s.True(client.IsStatus(err, http.StatusBadRequest))
	s.Equal(1, s.count(`SELECT COUNT(*) FROM workout_sessions WHERE id = $1 AND status = 'in_progress'`, started.SessionID))

	e := engine.New(started.SessionID, started.Exercises, time.Now)
	runner := engine.NewRunner(e, c, time.Millisecond)
	go func() {
		for range runner.Events() {
		}
	}()

	type result struct {
		req workouts.CompleteRequest
		err error
	}
	done := make(chan result, 1)
	go func() {
		req, err := runner.Run(ctx)
		done <- result{req, err}
	}()

	for i := 0; i < 6; i++ {
		s.Require().NoError(runner.Send(ctx, engine.CmdIncrementReps))
	}
	s.Require().NoError(runner.Send(ctx, engine.CmdNext))

	res := <-done
	s.Require().NoError(res.err)
	s.Len(res.req.ExerciseLogs, 2)

	session, err := c.GetWorkout(ctx, started.SessionID)
	s.Require().NoError(err)
	s.Equal(workouts.StatusCompleted, session.Status)
	s.Require().NotNil(session.EndTime)
	s.Require().Len(session.Logs, 2)
	s.Equal(6, session.Logs[0].RepsCompleted)
	s.Equal(3, session.Logs[0].SetsCompleted)
	s.Equal(60.0, session.Logs[0].WeightUsed)
	s.Equal(3, session.Logs[1].DurationSeconds)

	// completion is accepted once
	err = c.CompleteWorkout(ctx, started.SessionID, res.req)
	s.True(client.IsStatus(err, http.StatusNotFound))

	// history survives routine deletion
	s.Require().NoError(c.DeleteRoutine(ctx, routineID))
	history, err := c.History(ctx)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(started.SessionID, history[0].ID)
	s.Equal(2, history[0].TotalExercises)
	s.Equal(2, history[0].CompletedExercises)
}

func (s *IntegrationTestSuite) adminDo(ctx context.Context, httpClient *http.Client, method, path string, body any) (int, []byte) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, respBytes
}

func (s *IntegrationTestSuite) TestAdminUsers() {
	ctx := context.Background()

	jar, err := cookiejar.New(nil)
	s.Require().NoError(err)
	httpClient := &http.Client{Jar: jar, Timeout: 10 * time.Second}

	status, _ := s.adminDo(ctx, httpClient, http.MethodPost, "/api/login", users.Credentials{
		Username: users.BootstrapAdminUsername,
		Password: adminPassword,
	})
	s.Require().Equal(http.StatusOK, status)

	status, body := s.adminDo(ctx, httpClient, http.MethodGet, "/api/admin/users", nil)
	s.Require().Equal(http.StatusOK, status)
	var list []users.UserResponse
	s.Require().NoError(json.Unmarshal(body, &list))
	s.NotEmpty(list)

	var adminID int
	for _, u := range list {
		if u.Username == users.BootstrapAdminUsername {
			adminID = u.ID
		}
	}
	s.Require().NotZero(adminID)

	status, _ = s.adminDo(ctx, httpClient, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", adminID), nil)
	s.Equal(http.StatusForbidden, status)

	status, _ = s.adminDo(ctx, httpClient, http.MethodPut, fmt.Sprintf("/api/admin/users/%d", adminID), users.AdminUserRequest{
		Username: "root",
	})
	s.Equal(http.StatusBadRequest, status)

	newName := "m" + gofakeit.LetterN(8)
	status, body = s.adminDo(ctx, httpClient, http.MethodPost, "/api/admin/users", users.AdminUserRequest{
		Username: newName,
		Password: "Passw0rdNew",
	})
	s.Require().Equal(http.StatusOK, status)
	var created users.CreateUserResponse
	s.Require().NoError(json.Unmarshal(body, &created))

	// the new account can log in and is not an admin
	member, err := client.New(serverEndpoint)
	s.Require().NoError(err)
	me, err := member.Login(ctx, newName, "Passw0rdNew")
	s.Require().NoError(err)
	s.False(me.IsAdmin)

	status, _ = s.adminDo(ctx, httpClient, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", created.ID), nil)
	s.Equal(http.StatusOK, status)
	s.Equal(0, s.count(`SELECT COUNT(*) FROM users WHERE id = $1`, created.ID))

	// deleting the user revoked its session
	_, err = member.Me(ctx)
	s.True(client.IsStatus(err, http.StatusUnauthorized))
}
