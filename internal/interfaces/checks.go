package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/openshelf/shelfsync/internal/covers"
	"github.com/openshelf/shelfsync/internal/credstore"
	"github.com/openshelf/shelfsync/internal/database/books"
	syncdb "github.com/openshelf/shelfsync/internal/database/sync"
	"github.com/openshelf/shelfsync/internal/exporter"
	"github.com/openshelf/shelfsync/internal/http"
	"github.com/openshelf/shelfsync/internal/importer"
	"github.com/openshelf/shelfsync/internal/progress"
	"github.com/openshelf/shelfsync/internal/remote"
	"github.com/openshelf/shelfsync/internal/scheduler"
	"github.com/openshelf/shelfsync/internal/tasks"
)

// =============================================================================
// Remote Service Client
// =============================================================================

var _ importer.ReviewSource = (*remote.Client)(nil)
var _ exporter.RemoteCatalogue = (*remote.Client)(nil)
var _ http.RemoteAuthorizer = (*remote.Client)(nil)
var _ scheduler.Authorizer = (*remote.Client)(nil)

// =============================================================================
// Credential Store
// =============================================================================

var _ remote.CredentialStore = (*credstore.Store)(nil)
var _ importer.SyncState = (*credstore.Store)(nil)
var _ scheduler.SyncSettings = (*credstore.Store)(nil)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ importer.BookRepository = (*books.Repository)(nil)
var _ exporter.BookSource = (*books.Repository)(nil)

var _ importer.CheckpointStore = (*syncdb.Repository)(nil)
var _ exporter.CheckpointStore = (*syncdb.Repository)(nil)
var _ http.CheckpointReader = (*syncdb.Repository)(nil)

// =============================================================================
// Covers
// =============================================================================

var _ importer.CoverFetcher = (*covers.Cache)(nil)

// =============================================================================
// Task Queue
// =============================================================================

var _ scheduler.SyncEnqueuer = (*tasks.SyncEnqueuer)(nil)
var _ http.ImportEnqueuer = (*tasks.SyncEnqueuer)(nil)
var _ importer.ExportTrigger = (*tasks.ExportEnqueuer)(nil)
var _ http.ExportEnqueuer = (*tasks.ExportEnqueuer)(nil)

// =============================================================================
// Scheduling and Progress
// =============================================================================

var _ http.ScheduleInfo = (*scheduler.SyncScheduler)(nil)
var _ progress.Listener = (*progress.Tracker)(nil)
var _ progress.Listener = progress.Nop{}
