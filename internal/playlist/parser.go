package playlist

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/asherpoirier/streamvault/internal/models"
)

var (
	reLogo  = regexp.MustCompile(`tvg-logo="([^"]*)"`)
	reGroup = regexp.MustCompile(`group-title="([^"]*)"`)
)

const extinfPrefix = "#EXTINF:"

// pending accumulates the metadata from the most recent #EXTINF line until
// the next URI line closes it into a Channel. The zero value is the idle
// state; a pending block without a name is never emitted.
type pending struct {
	name  string
	logo  *string
	group *string
}

func (p pending) named() bool { return p.name != "" }

// Parse tokenises raw M3U8 text into an ordered channel list. It is a pure
// function and never fails: malformed input degrades to fewer channels.
// An #EXTINF block that is never followed by a URI line is dropped, as is a
// URI line with no preceding named #EXTINF.
func Parse(content string) []models.Channel {
	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var channels []models.Channel
	var pend pending

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, extinfPrefix):
			// A fresh #EXTINF resets the accumulator even if the previous
			// block was never closed by a URI line.
			pend = pendingFromEXTINF(line)
		case line != "" && !strings.HasPrefix(line, "#") && pend.named():
			channels = append(channels, models.Channel{
				Name:  pend.name,
				URL:   line,
				Logo:  pend.logo,
				Group: pend.group,
			})
			pend = pending{}
		}
	}
	return channels
}

// pendingFromEXTINF extracts logo, group, and name from an #EXTINF line.
// The name is everything after the last comma; with no comma the block
// stays unnamed and is later discarded.
func pendingFromEXTINF(line string) pending {
	p := pending{
		logo:  matchFirstPtr(reLogo, line),
		group: matchFirstPtr(reGroup, line),
	}
	if i := strings.LastIndex(line, ","); i >= 0 {
		p.name = strings.TrimSpace(line[i+1:])
	}
	return p
}

func matchFirstPtr(re *regexp.Regexp, s string) *string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return nil
	}
	v := strings.TrimSpace(m[1])
	if v == "" {
		return nil
	}
	return &v
}
