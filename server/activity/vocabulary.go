package activity

// ActivityPub and ActivityStreams vocabulary

const (
	IDProperty      = "id"
	TypeProperty    = "type"
	HrefProperty    = "href"
	ContextProperty = "@context"
)

const (
	Namespace     = "https://www.w3.org/ns/activitystreams"
	ContentType   = "application/activity+json"
	ContentTypeLD = `application/ld+json; profile="https://www.w3.org/ns/activitystreams"`
)

// ActivityStreams object types
const (
	ObjectType                = "Object"
	NoteType                  = "Note"
	ArticleType               = "Article"
	ImageType                 = "Image"
	VideoType                 = "Video"
	LinkType                  = "Link"
	MentionType               = "Mention"
	PreviewType               = "Preview"
	CollectionType            = "Collection"
	OrderedCollectionType     = "OrderedCollection"
	CollectionPageType        = "CollectionPage"
	OrderedCollectionPageType = "OrderedCollectionPage"
)

// ActivityStreams actor types
const (
	ApplicationType  = "Application"
	GroupType        = "Group"
	OrganizationType = "Organization"
	PersonType       = "Person"
	ServiceType      = "Service"
)

// ActivityStreams activity types
const (
	ActivityType             = "Activity"
	IntransitiveActivityType = "IntransitiveActivity"
	CreateType               = "Create"
	AddType                  = "Add"
	FollowType               = "Follow"
	UndoType                 = "Undo"
	AcceptType               = "Accept"
	RejectType               = "Reject"
	ArriveType               = "Arrive"
	TravelType               = "Travel"
	QuestionType             = "Question"
)
