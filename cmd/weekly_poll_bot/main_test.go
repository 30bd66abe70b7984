package main

import (
	"context"
	"errors"
	"testing"

	"weekly_poll_bot/internal/db/models"
	mock_services "weekly_poll_bot/internal/services/mocks"
	"weekly_poll_bot/internal/week"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func TestStartupHook_WithoutWeek(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	assert.Nil(t, startupHook(mock_services.NewMockPollService(ctrl), nil, false, zap.NewNop().Sugar()))
}

func TestStartupHook_CreatesWeek(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	target, ok := week.Parse("2026-W12")
	assert.True(t, ok)

	pollService := mock_services.NewMockPollService(ctrl)
	pollService.EXPECT().CreateForWeek(gomock.Any(), target).Return(&models.Poll{ID: 7, WeekKey: "2026-W12"}, nil)

	hook := startupHook(pollService, &target, false, zap.NewNop().Sugar())
	assert.NoError(t, hook(context.Background()))
}

func TestStartupHook_ReplacesWeek(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	target, _ := week.Parse("2026-W12")
	expected := errors.New("no poll for week")

	pollService := mock_services.NewMockPollService(ctrl)
	pollService.EXPECT().Replace(gomock.Any(), target).Return(nil, expected)

	hook := startupHook(pollService, &target, true, zap.NewNop().Sugar())
	assert.ErrorIs(t, hook(context.Background()), expected)
}
