package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/dto"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
	appErrors "github.com/Sebxs22/Proyecto-de-Grado/pkg/errors"
)

type fakeDashboards struct {
	dashboard *dto.TutorDashboard
	intervene []bool
}

func (f *fakeDashboards) Tutor(_ context.Context, _ string, intervene bool) (*dto.TutorDashboard, error) {
	f.intervene = append(f.intervene, intervene)
	return f.dashboard, nil
}

func sampleDashboard() *dto.TutorDashboard {
	details := tutorDetails()
	medium := models.RiskAssessment{Probability: 62, Tier: models.RiskTierMedium, Color: "yellow", CompletedSessions: 2, Explanation: "grade 5.00 is below the pass mark"}
	return &dto.TutorDashboard{
		TutorID: "tut-1",
		Rows: []dto.TutorDashboardRow{
			{Enrollment: details[0], Assessment: &medium},
			{Enrollment: details[1], Error: analysisUnavailable},
		},
	}
}

func TestExportServiceTutorRosterCSV(t *testing.T) {
	source := &fakeDashboards{dashboard: sampleDashboard()}
	svc := NewExportService(source, zap.NewNop(), nil, nil)

	result, err := svc.TutorRoster(context.Background(), "tut-1", "CSV")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasPrefix(result.Filename, "roster_tut-1_"))
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(result.Payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(rosterHeaders, ","), lines[0])
	assert.Contains(t, lines[1], "Ana Torres,Calculus,2026-A,in_progress,62.0,MEDIUM,yellow,2,")
	assert.Contains(t, lines[2], analysisUnavailable)
	assert.Equal(t, []bool{false}, source.intervene)
}

func TestExportServiceTutorRosterPDF(t *testing.T) {
	svc := NewExportService(&fakeDashboards{dashboard: sampleDashboard()}, nil, nil, nil)

	result, err := svc.TutorRoster(context.Background(), "tut-1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Payload, []byte("%PDF")))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&fakeDashboards{dashboard: sampleDashboard()}, nil, nil, nil)

	_, err := svc.TutorRoster(context.Background(), "tut-1", "xlsx")
	require.ErrorIs(t, err, appErrors.ErrValidation)
}
