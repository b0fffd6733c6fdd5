package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IvanChernomyrdin/gophassist/internal/server/service"
	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/models"
	"github.com/IvanChernomyrdin/gophassist/internal/shared/salvage"
)

func TestEmail_Draft(t *testing.T) {
	gen := &fakeGen{replies: []string{`Sure! {"subject": "Meeting on Friday", "body": "Hi Anna,\nsee you at 10."}`}}
	svc := service.NewEmailService(gen, nil, "m")

	draft, err := svc.Draft(context.Background(), 1, models.EmailRequest{
		Purpose:   " schedule a meeting ",
		Recipient: "Anna",
		Points:    []string{"Friday 10:00", " ", "room 4"},
	})
	require.NoError(t, err)
	require.Equal(t, "Meeting on Friday", draft.Subject)
	require.Equal(t, "Hi Anna,\nsee you at 10.", draft.Body)

	prompt := gen.last().Contents[0].Text()
	require.Contains(t, prompt, "Write an e-mail in en-US.")
	require.Contains(t, prompt, "Purpose: schedule a meeting\n")
	require.Contains(t, prompt, "Tone: neutral")
	require.Contains(t, prompt, "- Friday 10:00\n- room 4\n")
}

func TestEmail_Draft_EmptyPurpose(t *testing.T) {
	gen := &fakeGen{}
	svc := service.NewEmailService(gen, nil, "m")

	_, err := svc.Draft(context.Background(), 1, models.EmailRequest{Purpose: "  "})
	require.ErrorIs(t, err, serr.ErrInvalidInput)
	require.Zero(t, gen.count())
}

func TestEmail_Draft_MissingFields(t *testing.T) {
	raw := `{"subject": "Hello"}`
	gen := &fakeGen{replies: []string{raw}}
	svc := service.NewEmailService(gen, nil, "m")

	_, err := svc.Draft(context.Background(), 1, models.EmailRequest{Purpose: "hello"})

	var pe *salvage.ParseError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, raw, pe.Raw)
}

func TestEmail_Draft_Quota(t *testing.T) {
	gen := &fakeGen{err: serr.ErrQuotaExceeded}
	svc := service.NewEmailService(gen, nil, "m")

	_, err := svc.Draft(context.Background(), 1, models.EmailRequest{Purpose: "hello"})
	require.ErrorIs(t, err, serr.ErrQuotaExceeded)
}
