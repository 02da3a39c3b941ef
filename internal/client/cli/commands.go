package cli

import (
	"context"
	"fmt"

	"github.com/agriai/agrisync/internal/client/client"
	"github.com/agriai/agrisync/internal/client/services"
	"github.com/agriai/agrisync/internal/common"
)

// History prints the reconciled history.
func (a *App) History(ctx context.Context) error {
	records, err := a.history.GetHistory(ctx)
	if err != nil {
		return err
	}
	return RenderHistory(a.out, records)
}

// Diagnose submits one image and prints the stored record.
func (a *App) Diagnose(ctx context.Context, req services.PredictionRequest) error {
	if !a.monitor.IsConnected() || !a.session.Authenticated() {
		fmt.Fprintln(a.out, "Offline or signed out: using the offline stub. This result will not be uploaded.")
	}
	rec, err := a.predict.Submit(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved diagnosis #%d.\n\n", rec.LocalID)
	return a.printMarkdown(RecordMarkdown(*rec))
}

// DiagnoseInteractive asks for the request fields, then calls Diagnose.
func (a *App) DiagnoseInteractive(ctx context.Context) error {
	var req services.PredictionRequest
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Image path", &req.ImagePath},
		{"Crop", &req.Crop},
		{"Symptoms (optional)", &req.Symptoms},
		{"Location (optional)", &req.Location},
	}
	for _, f := range fields {
		v, err := GetSimpleText(a.reader, f.prompt, a.out)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return a.Diagnose(ctx, req)
}

// Show prints one record with its advice rendered as markdown.
func (a *App) Show(ctx context.Context, localID int64) error {
	rec, err := a.store.Get(ctx, localID)
	if err != nil {
		return err
	}
	return a.printMarkdown(RecordMarkdown(*rec))
}

func (a *App) printMarkdown(md string) error {
	out, err := a.renderMarkdown(md)
	if err != nil {
		a.log.Debug(context.Background(), "markdown render failed, printing raw", "error", err)
		out = md
	}
	_, err = fmt.Fprint(a.out, out)
	return err
}

// Delete removes one record by local id.
func (a *App) Delete(ctx context.Context, localID int64) error {
	rec, err := a.store.Get(ctx, localID)
	if err != nil {
		return err
	}
	if err := a.deleter.Delete(ctx, *rec); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted diagnosis #%d.\n", localID)
	return nil
}

// Login stores token, prompting for it when empty.
func (a *App) Login(ctx context.Context, token string) error {
	if token == "" {
		var err error
		token, err = GetSecret(a.reader, "Bearer token", a.out)
		if err != nil {
			return err
		}
	}
	if err := a.session.Login(ctx, token); err != nil {
		return err
	}
	a.history.Invalidate()

	info := a.session.Info()
	if !info.Authenticated {
		fmt.Fprintln(a.out, "Token saved, but it has already expired.")
		return nil
	}
	fmt.Fprintf(a.out, "Signed in as %s.\n", info.Identity)
	return nil
}

// Logout forgets the token and wipes local history.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	if err := a.store.Clear(ctx); err != nil {
		return err
	}
	a.history.Invalidate()
	fmt.Fprintln(a.out, "Signed out. Local history cleared.")
	return nil
}

// Reset drops and recreates the local database schema.
func (a *App) Reset(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	if err := client.ResetDatabase(ctx, a.db); err != nil {
		return common.Storage("reset database", err)
	}
	a.history.Invalidate()
	fmt.Fprintln(a.out, "Local database reset.")
	return nil
}

// Status prints connectivity, session and store counts.
func (a *App) Status(ctx context.Context) error {
	records, err := a.store.ListAll(ctx)
	if err != nil {
		return err
	}
	localOnly := 0
	for _, r := range records {
		if !r.Synced {
			localOnly++
		}
	}

	st := a.monitor.State()
	info := a.session.Info()
	return RenderStatus(a.out, StatusView{
		Connected:         st.Connected,
		InternetReachable: st.InternetReachable,
		ForcedOffline:     a.config.ForceOffline,
		APIBaseURL:        a.config.APIBaseURL,
		Identity:          info.Identity,
		Authenticated:     info.Authenticated,
		ExpiresAt:         info.ExpiresAt,
		Records:           len(records),
		LocalOnly:         localOnly,
	})
}
