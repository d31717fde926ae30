package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/poi-ingest/internal/domain"
)

func TestXMLParser_DataRecords(t *testing.T) {
	path := writeFile(t, "pois.xml", []byte(`<?xml version="1.0" encoding="UTF-8"?>
<RECORDS>
    <DATA_RECORD>
        <pid>xml_001</pid>
        <pname>XML Restaurant</pname>
        <pcategory>restaurant</pcategory>
        <platitude>40.7128</platitude>
        <plongitude>-74.0060</plongitude>
        <pratings>4.5, 3.8, 4.2</pratings>
    </DATA_RECORD>
    <DATA_RECORD>
        <pid>xml_002</pid>
        <pname>XML Hotel</pname>
        <pcategory>hotel</pcategory>
        <platitude>40.7589</platitude>
        <plongitude>-73.9851</plongitude>
        <pratings>3.5, 4.0, 2.8, 4.2</pratings>
    </DATA_RECORD>
</RECORDS>`))

	records, failures := collect(t, NewXMLParser(zap.NewNop()), path)
	require.Empty(t, failures)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "xml_001", first.ExternalID)
	assert.Equal(t, "XML Restaurant", first.Name)
	assert.Equal(t, "restaurant", first.Category)
	assert.Equal(t, domain.SourceXML, first.Source)
	assert.Equal(t, []float64{4.5, 3.8, 4.2}, first.Ratings)
	assert.Equal(t, []float64{3.5, 4.0, 2.8, 4.2}, records[1].Ratings)
}

func TestXMLParser_AliasesAndTagPriority(t *testing.T) {
	path := writeFile(t, "pois.xml", []byte(`<catalog>
  <item><id>item-1</id><name>Item</name><latitude>1</latitude><longitude>2</longitude></item>
  <group>
    <poi><pid></pid><id>poi-1</id><name>Poi</name><category>museum</category>
      <description>  Old building  </description></poi>
  </group>
</catalog>`))

	records, failures := collect(t, NewXMLParser(zap.NewNop()), path)
	require.Empty(t, failures)
	require.Len(t, records, 2)

	// poi идёт раньше item в списке тегов
	assert.Equal(t, "poi-1", records[0].ExternalID)
	assert.Equal(t, "museum", records[0].Category)
	assert.Equal(t, "Old building", records[0].Description)
	assert.Equal(t, "item-1", records[1].ExternalID)
	assert.Equal(t, "1.000000", records[1].Latitude.StringFixed(6))
}

func TestXMLParser_ChildFallback(t *testing.T) {
	path := writeFile(t, "places.xml", []byte(`<places>
  <place><pid>a</pid><pname>Alpha</pname></place>
  <place><pname>No Id</pname></place>
</places>`))

	records, failures := collect(t, NewXMLParser(zap.NewNop()), path)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].ExternalID)
	require.Len(t, failures, 1)
	assert.Equal(t, 1, failures[0].Index)
	assert.ErrorIs(t, failures[0].Err, ErrRecordSkipped)
}

func TestXMLParser_RootIsRecord(t *testing.T) {
	path := writeFile(t, "poi.xml", []byte(`<poi><pid>single</pid><pname>Solo</pname></poi>`))

	records, failures := collect(t, NewXMLParser(zap.NewNop()), path)
	require.Empty(t, failures)
	require.Len(t, records, 1)
	assert.Equal(t, "single", records[0].ExternalID)
}

func TestXMLParser_Recovery(t *testing.T) {
	path := writeFile(t, "broken.xml", []byte("<RECORDS><DATA_RECORD><pid>r1</pid>"+
		"<pname>Fish & Chips \x01Bar</pname><pdescription>A &amp; B</pdescription>"+
		"</DATA_RECORD></RECORDS>"))

	records, failures := collect(t, NewXMLParser(zap.NewNop()), path)
	require.Empty(t, failures)
	require.Len(t, records, 1)
	assert.Equal(t, "Fish & Chips Bar", records[0].Name)
	assert.Equal(t, "A & B", records[0].Description)
}

func TestXMLParser_Unrecoverable(t *testing.T) {
	path := writeFile(t, "broken.xml", []byte("<RECORDS><DATA_RECORD></RECORDS>"))

	_, err := NewXMLParser(zap.NewNop()).Parse(context.Background(), path)
	require.Error(t, err)

	_, err = NewXMLParser(zap.NewNop()).Parse(context.Background(), writeFile(t, "empty.xml", nil))
	require.Error(t, err)
}

func TestXMLParser_TrailingContent(t *testing.T) {
	p := NewXMLParser(zap.NewNop())

	_, err := p.Parse(context.Background(), writeFile(t, "junk.xml", []byte(
		"<RECORDS><DATA_RECORD><pid>j1</pid><pname>First</pname></DATA_RECORD></RECORDS><extra>junk")))
	require.Error(t, err)

	_, err = p.Parse(context.Background(), writeFile(t, "text.xml", []byte(
		"<RECORDS><DATA_RECORD><pid>j1</pid><pname>First</pname></DATA_RECORD></RECORDS>trailing text")))
	require.Error(t, err)

	records, failures := collect(t, p, writeFile(t, "comment.xml", []byte(
		"<RECORDS><DATA_RECORD><pid>j1</pid><pname>First</pname></DATA_RECORD></RECORDS>\n<!-- export end -->\n")))
	require.Empty(t, failures)
	require.Len(t, records, 1)
	assert.Equal(t, "j1", records[0].ExternalID)
}

func TestXMLParser_Latin1(t *testing.T) {
	content := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<RECORDS><DATA_RECORD><pid>l1</pid><pname>Caf\xe9</pname></DATA_RECORD></RECORDS>")
	path := writeFile(t, "latin1.xml", content)

	records, failures := collect(t, NewXMLParser(zap.NewNop()), path)
	require.Empty(t, failures)
	require.Len(t, records, 1)
	assert.Equal(t, "Café", records[0].Name)
}

func TestCleanXML(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"a & b", "a &amp; b"},
		{"&amp; &#38; &#x26; &lt;", "&amp; &#38; &#x26; &lt;"},
		{"tail &x", "tail &amp;x"},
		{"&;", "&amp;;"},
		{"tab\tnl\ncr\r", "tab\tnl\ncr\r"},
		{"bell\x07del\x7f", "belldel"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, string(cleanXML([]byte(tt.in))), tt.in)
	}
}
