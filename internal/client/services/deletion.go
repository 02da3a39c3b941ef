package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/agriai/agrisync/internal/client/client"
	"github.com/agriai/agrisync/internal/client/models"
	"github.com/agriai/agrisync/internal/client/repositories/diagnoses"
	"github.com/agriai/agrisync/internal/common"
	"github.com/agriai/agrisync/internal/logging"
)

// DeletionService removes a record optimistically: the cached view drops it
// at once and is restored if the remote or local delete fails.
type DeletionService struct {
	store   diagnoses.Repository
	remote  client.Client
	net     Connectivity
	auth    Auth
	history *HistoryService
	log     logging.Logger
}

func NewDeletionService(store diagnoses.Repository, remote client.Client, net Connectivity, auth Auth, history *HistoryService, log logging.Logger) *DeletionService {
	if log == nil {
		log = logging.Nop()
	}
	return &DeletionService{store: store, remote: remote, net: net, auth: auth, history: history, log: log}
}

// Delete removes rec remotely (when the server knows it) and locally. On
// failure the cached view is rolled back and the error returned. Either way
// the cache is reconciled against the store before Delete returns.
func (s *DeletionService) Delete(ctx context.Context, rec models.DiagnosisRecord) error {
	key := s.history.Key()

	end := s.history.BeginMutation(key)
	defer end()
	snap := s.history.Snapshot(key)
	s.history.Apply(key, removeLocal(rec.LocalID))

	err := s.deleteRemote(ctx, rec)
	if err == nil {
		err = s.store.DeleteByLocalID(ctx, rec.LocalID)
	}
	if err != nil {
		s.history.Restore(snap)
		s.log.Warn(ctx, "delete failed, view restored", "local_id", rec.LocalID, "error", err)
	} else {
		s.log.Info(ctx, "diagnosis deleted", "local_id", rec.LocalID, "remote_id", rec.RemoteIDOrEmpty())
	}

	end()

	if _, rerr := s.history.Refresh(ctx); rerr != nil {
		s.log.Warn(ctx, "history refresh after delete failed", "error", rerr)
	}
	return err
}

func (s *DeletionService) deleteRemote(ctx context.Context, rec models.DiagnosisRecord) error {
	if !rec.Synced || rec.RemoteID == nil {
		return nil
	}
	if !s.net.IsConnected() || !s.auth.Authenticated() {
		return fmt.Errorf("delete %s: %w", *rec.RemoteID, common.ErrOfflineGate)
	}
	err := s.remote.Delete(ctx, *rec.RemoteID)
	if errors.Is(err, client.ErrNotFound) {
		s.log.Info(ctx, "remote record already gone", "remote_id", *rec.RemoteID)
		return nil
	}
	return err
}
