package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	medtrailv1 "github.com/rzbill/medtrail/api/medtrail/v1"
	cfgpkg "github.com/rzbill/medtrail/internal/config"
	"github.com/rzbill/medtrail/internal/eventlog"
	"github.com/rzbill/medtrail/internal/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1 << 20

func dialer(s *grpc.Server) func(context.Context, string) (net.Conn, error) {
	lis := bufconn.Listen(bufSize)
	go func() { _ = s.Serve(lis) }()
	return func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }
}

func newTestConn(t *testing.T) *grpc.ClientConn {
	t.Helper()
	conn, _ := newTestConnRuntime(t)
	return conn
}

func newTestConnRuntime(t *testing.T) (*grpc.ClientConn, *runtime.Runtime) {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.DataDir = t.TempDir()
	rt, err := runtime.Open(runtime.Options{Config: cfg})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	srv := New(rt, nil)
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer(srv.grpc)),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		srv.Close()
		_ = rt.Close()
	})
	return conn, rt
}

func TestHealthOverGRPC(t *testing.T) {
	conn := newTestConn(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status: %v", res.GetStatus())
	}
}

func TestRecordsOverGRPC(t *testing.T) {
	c := medtrailv1.NewRecordsClient(newTestConn(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := c.CreatePatient(ctx, medtrailv1.CreatePatientRequest{Name: "Grace Hopper", Attributes: map[string]string{"ward": "3B"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := c.GetPatient(ctx, p.ID)
	if err != nil || got.Name != "Grace Hopper" || got.Attributes["ward"] != "3B" {
		t.Fatalf("get: %+v %v", got, err)
	}

	base := time.Now().Add(-time.Hour).UTC()
	for i, typ := range []string{"LAB_RESULT", "ADMISSION", "DISCHARGE"} {
		_, err := c.AddEvent(ctx, medtrailv1.AddEventRequest{
			PatientID: p.ID,
			EventType: typ,
			Timestamp: base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339Nano),
			Codes:     []string{"Z1", "Z1"},
		})
		if err != nil {
			t.Fatalf("add %s: %v", typ, err)
		}
	}
	list, err := c.ListEvents(ctx, medtrailv1.ListEventsRequest{PatientID: p.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Events) != 3 || list.Events[0].EventType != "DISCHARGE" || list.Events[2].EventType != "LAB_RESULT" {
		t.Fatalf("order: %+v", list.Events)
	}
	if !list.Events[1].Urgent || len(list.Events[0].Codes) != 2 {
		t.Fatalf("fields: %+v", list.Events[1])
	}

	urgent, err := c.ListEvents(ctx, medtrailv1.ListEventsRequest{PatientID: p.ID, Filter: "urgent"})
	if err != nil || len(urgent.Events) != 1 {
		t.Fatalf("filtered list: %+v %v", urgent, err)
	}

	zero := 0
	empty, err := c.ListEvents(ctx, medtrailv1.ListEventsRequest{PatientID: p.ID, WindowDays: &zero})
	if err != nil || len(empty.Events) != 0 {
		t.Fatalf("zero window: %+v %v", empty, err)
	}
}

func TestErrorCodesOverGRPC(t *testing.T) {
	c := medtrailv1.NewRecordsClient(newTestConn(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.AddEvent(ctx, medtrailv1.AddEventRequest{PatientID: uuid.NewString(), EventType: "LAB_RESULT"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("unknown patient: %v", err)
	}
	_, err = c.GetPatient(ctx, "not-a-uuid")
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("malformed id: %v", err)
	}

	p, err := c.CreatePatient(ctx, medtrailv1.CreatePatientRequest{Name: "Dup"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ev := medtrailv1.AddEventRequest{PatientID: p.ID, EventID: "0000018cc86e4d4e0000000000000001", Timestamp: "1704164645678", EventType: "LAB_RESULT"}
	if _, err := c.AddEvent(ctx, ev); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := c.AddEvent(ctx, ev); status.Code(err) != codes.AlreadyExists {
		t.Fatalf("duplicate: %v", err)
	}
	neg := -3
	if _, err := c.ListEvents(ctx, medtrailv1.ListEventsRequest{PatientID: p.ID, WindowDays: &neg}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("negative window: %v", err)
	}
	if _, err := c.DeletePatient(ctx, medtrailv1.DeletePatientRequest{ID: p.ID}); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("delete without cascade: %v", err)
	}
	res, err := c.DeletePatient(ctx, medtrailv1.DeletePatientRequest{ID: p.ID, Cascade: true})
	if err != nil || res.EventsRemoved != 1 {
		t.Fatalf("cascade: %+v %v", res, err)
	}
}

func TestDamagedEventIsUnavailable(t *testing.T) {
	conn, rt := newTestConnRuntime(t)
	c := medtrailv1.NewRecordsClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := c.CreatePatient(ctx, medtrailv1.CreatePatientRequest{Name: "Damaged"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.AddEvent(ctx, medtrailv1.AddEventRequest{PatientID: p.ID, EventType: "ADMISSION"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	root := uuid.MustParse(p.ID)
	it, err := rt.DB().NewIter(&pebble.IterOptions{
		LowerBound: eventlog.KeyPartitionPrefix(root),
		UpperBound: eventlog.KeyPartitionEnd(root),
	})
	if err != nil {
		t.Fatalf("iter: %v", err)
	}
	if !it.First() {
		t.Fatalf("no stored event")
	}
	key := append([]byte(nil), it.Key()...)
	val := append([]byte(nil), it.Value()...)
	if err := it.Close(); err != nil {
		t.Fatalf("iter close: %v", err)
	}
	val[len(val)-1] ^= 0xFF
	if err := rt.DB().Set(key, val); err != nil {
		t.Fatalf("set: %v", err)
	}

	if _, err := c.ListEvents(ctx, medtrailv1.ListEventsRequest{PatientID: p.ID}); status.Code(err) != codes.Unavailable {
		t.Fatalf("damaged read: %v", err)
	}
}
