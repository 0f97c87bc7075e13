package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeFetcher serves canned bodies per URL and records the fetch order.
type fakeFetcher struct {
	pages   map[string]string
	visited []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.visited = append(f.visited, url)
	body, ok := f.pages[url]
	if !ok {
		return nil, errors.New("unreachable")
	}
	return []byte(body), nil
}

func TestResolvePrefersSourceTagOverScriptLiteral(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://74k.io/embed/abc": `
			<video><source src="https://media.example.org/from-source.mp4"></video>
			<script>var u = "https://media.example.org/from-script.mp4";</script>`,
	}}

	r := New(fetcher, "", nil)
	url, err := r.Resolve(context.Background(), []string{"https://74k.io/embed/abc"})
	require.NoError(t, err)
	require.Equal(t, "https://media.example.org/from-source.mp4", url)
}

func TestResolveFallsBackToScriptLiteral(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://74k.io/embed/abc": `
			<script>
				player.load({file: 'https://media.example.org/clip.mp4?token=1'});
			</script>`,
	}}

	r := New(fetcher, "", nil)
	url, err := r.Resolve(context.Background(), []string{"https://74k.io/embed/abc"})
	require.NoError(t, err)
	require.Equal(t, "https://media.example.org/clip.mp4?token=1", url)
}

func TestResolveIgnoresRelativeScriptLiterals(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://74k.io/embed/abc": `<script>var u = "/local/clip.mp4";</script>`,
	}}

	r := New(fetcher, "", nil)
	url, err := r.Resolve(context.Background(), []string{"https://74k.io/embed/abc"})
	require.NoError(t, err)
	require.Empty(t, url, "non-http literals are not playable URLs")
}

func TestResolveTriesCandidatesInOrder(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://74k.io/embed/empty": `<html><body>nothing here</body></html>`,
		"https://88z.io/embed/hit":   `<video><source src="https://m.example.org/v.mp4"></video>`,
	}}

	r := New(fetcher, "", nil)
	url, err := r.Resolve(context.Background(), []string{
		"https://74k.io/embed/down",
		"https://74k.io/embed/empty",
		"https://88z.io/embed/hit",
	})
	require.NoError(t, err)
	require.Equal(t, "https://m.example.org/v.mp4", url)
	require.Equal(t, []string{
		"https://74k.io/embed/down",
		"https://74k.io/embed/empty",
		"https://88z.io/embed/hit",
	}, fetcher.visited, "a failed candidate must not abort the chain")
}

func TestResolveExhaustionIsNotAnError(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{}}

	r := New(fetcher, "", nil)
	url, err := r.Resolve(context.Background(), []string{"https://74k.io/embed/a", "https://74k.io/embed/b"})
	require.NoError(t, err)
	require.Empty(t, url)
}

func TestResolveStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{pages: map[string]string{}}
	r := New(fetcher, "", nil)
	url, err := r.Resolve(ctx, []string{"https://74k.io/embed/a"})
	require.NoError(t, err)
	require.Empty(t, url)
	require.Empty(t, fetcher.visited, "no fetch may start after cancellation")
}
