package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/projectdiscovery/subnoise"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "domains.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDomainsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	domains, err := s.GetAllDomains(ctx)
	require.NoError(t, err)
	require.Empty(t, domains)

	want := []subnoise.Domain{
		{Name: "a.b.example.com", ProjectID: "p1"},
		{Name: "mail.example.org", ProjectID: "p2"},
		{Name: "c.d.example.com", ProjectID: "p1"},
	}
	require.NoError(t, s.AddDomains(ctx, want...))
	domains, err = s.GetAllDomains(ctx)
	require.NoError(t, err)
	require.Equal(t, want, domains)
}

func TestIntegerProjectIDs(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, err := s.db.Exec("INSERT INTO domains (name, project_id) VALUES ('a.b.example.com', 42)")
	require.NoError(t, err)

	domains, err := s.GetAllDomains(ctx)
	require.NoError(t, err)
	require.Equal(t, []subnoise.Domain{{Name: "a.b.example.com", ProjectID: "42"}}, domains)
}

func TestRulesInsertDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	rules := []subnoise.Rule{
		{Pattern: ".*b.example.com", ProjectID: "p1"},
		{Pattern: ".*b.example.com", ProjectID: "p1"},
		{Pattern: ".*mail.example.org", ProjectID: "p2"},
	}
	for _, r := range rules {
		require.NoError(t, s.InsertRule(ctx, r))
	}
	got, err := s.Rules(ctx)
	require.NoError(t, err)
	require.Equal(t, rules, got, "duplicates are allowed")

	require.NoError(t, s.DeleteRules(ctx, &subnoise.RuleFilter{ProjectID: "p1"}))
	got, err = s.Rules(ctx)
	require.NoError(t, err)
	require.Equal(t, rules[2:], got)

	require.NoError(t, s.DeleteRules(ctx, nil))
	got, err = s.Rules(ctx)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRuleTx(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	prior := subnoise.Rule{Pattern: ".*old.example.com", ProjectID: "p1"}
	require.NoError(t, s.InsertRule(ctx, prior))

	tx, err := s.BeginRules(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.DeleteRules(ctx, nil))
	require.NoError(t, tx.InsertRule(ctx, subnoise.Rule{Pattern: ".*new.example.com", ProjectID: "p1"}))
	require.NoError(t, tx.Rollback())

	got, err := s.Rules(ctx)
	require.NoError(t, err)
	require.Equal(t, []subnoise.Rule{prior}, got)

	tx, err = s.BeginRules(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.DeleteRules(ctx, nil))
	require.NoError(t, tx.InsertRule(ctx, subnoise.Rule{Pattern: ".*new.example.com", ProjectID: "p1"}))
	require.NoError(t, tx.Commit())
	require.ErrorIs(t, tx.Commit(), sql.ErrTxDone)

	got, err = s.Rules(ctx)
	require.NoError(t, err)
	require.Equal(t, []subnoise.Rule{{Pattern: ".*new.example.com", ProjectID: "p1"}}, got)
}

func TestAnalyzerWithSQLite(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.AddDomains(ctx,
		subnoise.Domain{Name: "a.b.example.com", ProjectID: "p1"},
		subnoise.Domain{Name: "c.d.example.com", ProjectID: "p1"},
		subnoise.Domain{Name: "x.y.example.com", ProjectID: "p1"},
		subnoise.Domain{Name: "totally.different.other.net", ProjectID: "p1"},
		subnoise.Domain{Name: "example.com", ProjectID: "p2"},
	))
	require.NoError(t, s.InsertRule(ctx, subnoise.Rule{Pattern: ".*stale.example.com", ProjectID: "p2"}))

	a, err := subnoise.New(s, s, &subnoise.Options{Threshold: 1.3})
	require.NoError(t, err)
	report, err := a.Run(ctx, true)
	require.NoError(t, err)
	require.True(t, report.Atomic)

	got, err := s.Rules(ctx)
	require.NoError(t, err)
	require.Equal(t, []subnoise.Rule{
		{Pattern: ".*b.example.com", ProjectID: "p1"},
		{Pattern: ".*d.example.com", ProjectID: "p1"},
		{Pattern: ".*y.example.com", ProjectID: "p1"},
	}, got)
}
