package discovery

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestScanner() *Scanner {
	return NewScanner([]string{".from", ".table"}, "@story", regexp.MustCompile(`^[A-Z]{2,}-[A-Z]*[0-9]+$`), []string{"CREW_SERVICE_URL"})
}

func TestScan_AppRouterHandler(t *testing.T) {
	src := `/**
 * @summary Project detail
 * @story US-F01, US-F02, not-an-id
 */
import { createClient } from '@/lib/supabase/server';

export async function GET(req: Request) {
  const { data } = await supabase.from('projects').select('*');
  const items = Array.from(data);
  await supabase.from("project_members").select();
  return fetch(process.env.CREW_SERVICE_URL + '/kickoff');
}

export const PATCH = withAuth(async () => {
  await supabase.from('projects').update({});
});
`
	f := newTestScanner().Scan(src)

	assert.Equal(t, []string{"GET", "PATCH"}, f.Methods)
	assert.Equal(t, []string{"project_members", "projects"}, f.Tables)
	assert.Equal(t, []string{"CREW_SERVICE_URL"}, f.External)
	assert.Equal(t, []string{"US-F01", "US-F02"}, f.DocTags)
	assert.Equal(t, "Project detail", f.Description)
}

func TestScan_DefaultsToGET(t *testing.T) {
	f := newTestScanner().Scan("export default function handler() {}")
	assert.Equal(t, []string{"GET"}, f.Methods)
	assert.Empty(t, f.Tables)
	assert.Empty(t, f.DocTags)
}

func TestScan_FunctionMethodComparisons(t *testing.T) {
	src := `
def handler(event, context):
    if event.get("httpMethod") == "OPTIONS":
        return cors()
    if event.get('httpMethod') != 'POST':
        return not_allowed()
`
	f := newTestScanner().Scan(src)
	assert.Equal(t, []string{"POST", "OPTIONS"}, f.Methods)
}

func TestScan_ExportAlias(t *testing.T) {
	f := newTestScanner().Scan("export { handler as GET, handler as POST };")
	assert.Equal(t, []string{"GET", "POST"}, f.Methods)
}

func TestScan_PythonStorageTables(t *testing.T) {
	src := `
from supabase import create_client

def handler(event, context):
    rows = supabase.table("evidence").select("*").execute()
    supabase.table('audit_log').insert({"event": "read"}).execute()
    return {"statusCode": 200}
`
	f := newTestScanner().Scan(src)
	assert.Equal(t, []string{"audit_log", "evidence"}, f.Tables)
}

func TestScan_OnlyConfiguredAccessors(t *testing.T) {
	s := NewScanner([]string{".from"}, "", nil, nil)
	f := s.Scan(`supabase.table("evidence"); supabase.from('projects')`)
	assert.Equal(t, []string{"projects"}, f.Tables)

	f = NewScanner(nil, "", nil, nil).Scan(`supabase.from('projects')`)
	assert.Empty(t, f.Tables)
}
