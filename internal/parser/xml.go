package parser

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/poi-ingest/internal/domain"
	"github.com/poi-ingest/internal/pkg/normalize"
)

// Теги, под которыми ищутся записи, в порядке приоритета
var xmlRecordTags = []string{"DATA_RECORD", "poi", "point_of_interest", "item"}

// Корневые теги, которые сами являются записью
var xmlRootRecordTags = []string{"poi", "pois", "point_of_interest"}

// Синонимы тегов полей, берётся первый непустой
var xmlFieldAliases = map[string][]string{
	domain.FieldExternalID:  {"pid", "id", "external_id"},
	domain.FieldName:        {"pname", "name"},
	domain.FieldLatitude:    {"platitude", "latitude"},
	domain.FieldLongitude:   {"plongitude", "longitude"},
	domain.FieldCategory:    {"pcategory", "category"},
	domain.FieldRatings:     {"pratings", "ratings"},
	domain.FieldDescription: {"pdescription", "description"},
}

// xmlNode - универсальное дерево документа
type xmlNode struct {
	XMLName  xml.Name
	Text     string    `xml:",chardata"`
	Children []xmlNode `xml:",any"`
}

// child возвращает текст первого прямого потомка с непустым текстом
func (n *xmlNode) child(tags []string) any {
	for _, tag := range tags {
		for i := range n.Children {
			c := &n.Children[i]
			if c.XMLName.Local == tag && c.Text != "" {
				return strings.TrimSpace(c.Text)
			}
		}
	}
	return nil
}

// descendants собирает всех потомков с тегом в порядке документа
func (n *xmlNode) descendants(tag string, out []*xmlNode) []*xmlNode {
	for i := range n.Children {
		c := &n.Children[i]
		if c.XMLName.Local == tag {
			out = append(out, c)
		}
		out = c.descendants(tag, out)
	}
	return out
}

type xmlParser struct {
	recordBuilder
}

// NewXMLParser создаёт парсер XML с одной попыткой восстановления битого документа
func NewXMLParser(logger *zap.Logger) Parser {
	return &xmlParser{
		recordBuilder: recordBuilder{
			logger: logger.With(zap.String("parser", "xml")),
			source: domain.SourceXML,
		},
	}
}

func (p *xmlParser) Source() domain.Source {
	return domain.SourceXML
}

// Parse загружает документ целиком: при ошибке синтаксиса файл чистится
// и разбирается ещё раз, повторная ошибка фатальна для файла.
func (p *xmlParser) Parse(ctx context.Context, path string) (iter.Seq[Result], error) {
	if err := checkFile(path); err != nil {
		return nil, err
	}

	p.logger.Info("Parsing XML file", zap.String("file", path))

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
	}

	root, err := decodeXML(content)
	if err != nil {
		p.logger.Warn("XML parse error, retrying after cleanup",
			zap.String("file", path),
			zap.Error(err),
		)

		root, err = decodeXML(cleanXML(content))
		if err != nil {
			p.logger.Error("Failed to parse XML even after cleanup",
				zap.String("file", path),
				zap.Error(err),
			)
			return nil, fmt.Errorf("parse xml %s: %w", path, err)
		}
		p.logger.Info("Parsed XML after cleanup", zap.String("file", path))
	}

	elements := recordElements(root)

	return func(yield func(Result) bool) {
		for idx, elem := range elements {
			if err := ctxDone(ctx); err != nil {
				yield(p.readError(path, idx, err))
				return
			}
			if !yield(p.parseElement(path, idx, elem)) {
				return
			}
		}
	}, nil
}

func (p *xmlParser) parseElement(path string, index int, elem *xmlNode) Result {
	get := func(field string) any {
		return elem.child(xmlFieldAliases[field])
	}

	id := normalize.NormalizeString(get(domain.FieldExternalID), "")
	name := normalize.NormalizeString(get(domain.FieldName), "")
	if res, ok := p.requireIdentity(path, index, id, name); !ok {
		return res
	}

	lat, lon, ok := normalize.ParseCoordinates(get(domain.FieldLatitude), get(domain.FieldLongitude))
	if !ok {
		return p.skip(path, index, "invalid coordinates")
	}

	ratings, dropped := normalize.CoerceFloatList(get(domain.FieldRatings), normalize.DefaultSeparator)
	p.logDropped(path, index, dropped)

	return p.build(path, index, domain.RawRecord{
		domain.FieldExternalID:  id,
		domain.FieldName:        name,
		domain.FieldLatitude:    lat,
		domain.FieldLongitude:   lon,
		domain.FieldCategory:    normalize.NormalizeString(get(domain.FieldCategory), domain.DefaultCategory),
		domain.FieldRatings:     ratings,
		domain.FieldDescription: normalize.NormalizeString(get(domain.FieldDescription), ""),
	})
}

// recordElements находит элементы-записи.
// Если ни один известный тег не найден, записью считается каждый прямой потомок корня.
// На документах другой структуры это может дать мусорные записи.
func recordElements(root *xmlNode) []*xmlNode {
	for _, tag := range xmlRootRecordTags {
		if root.XMLName.Local == tag {
			return []*xmlNode{root}
		}
	}

	var elements []*xmlNode
	for _, tag := range xmlRecordTags {
		elements = root.descendants(tag, elements)
	}
	if len(elements) > 0 {
		return elements
	}

	for i := range root.Children {
		elements = append(elements, &root.Children[i])
	}
	return elements
}

func decodeXML(content []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.CharsetReader = charsetReader

	var root xmlNode
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no root element")
		}
		return nil, err
	}
	if err := expectDocumentEnd(dec); err != nil {
		return nil, err
	}
	return &root, nil
}

// expectDocumentEnd допускает после корня только пробелы, комментарии и инструкции обработки
func expectDocumentEnd(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return errors.New("junk after document element")
			}
		default:
			return errors.New("junk after document element")
		}
	}
}

// charsetReader перекодирует документы в кодировке, отличной от UTF-8
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// cleanXML удаляет управляющие символы (кроме \t, \n, \r)
// и экранирует &, за которым не следует сущность или ссылка на символ.
func cleanXML(content []byte) []byte {
	content = bytes.Map(func(r rune) rune {
		if (r < 0x20 && r != '\t' && r != '\n' && r != '\r') || r == 0x7f {
			return -1
		}
		return r
	}, content)

	var out bytes.Buffer
	out.Grow(len(content))
	for i := 0; i < len(content); i++ {
		if content[i] == '&' && !isEntityRef(content[i+1:]) {
			out.WriteString("&amp;")
			continue
		}
		out.WriteByte(content[i])
	}
	return out.Bytes()
}

// isEntityRef проверяет, что данные начинаются с [A-Za-z0-9#]+;
func isEntityRef(rest []byte) bool {
	n := 0
	for n < len(rest) {
		c := rest[n]
		if c == ';' {
			return n > 0
		}
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '#') {
			return false
		}
		n++
	}
	return false
}
