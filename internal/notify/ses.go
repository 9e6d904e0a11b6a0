package notify

import (
	"context"
	"log"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sesv2"
)

const (
	defaultRegion   = "us-east-2"
	contactListName = "Gumdrop"
	charset         = "utf-8"
)

// EmailClient is the part of *sesv2.SESV2 the email channel uses.
type EmailClient interface {
	SendEmailWithContext(ctx aws.Context, input *sesv2.SendEmailInput, opts ...request.Option) (*sesv2.SendEmailOutput, error)
}

// Email sends drop announcements through SES v2.
type Email struct {
	client EmailClient
	source string
	logger *log.Logger
}

func newSESClient(auth AuthKeys) (EmailClient, error) {
	region := auth["region"]
	if region == "" {
		region = defaultRegion
	}
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewStaticCredentials(auth["accessKeyId"], auth["secretAccessKey"], ""),
	})
	if err != nil {
		return nil, err
	}
	return sesv2.New(sess), nil
}

// Kind returns ChannelEmail.
func (e *Email) Kind() ChannelKind { return ChannelEmail }

// Notify sends the formatted drop message to the claimant's address through SES.
func (e *Email) Notify(ctx context.Context, info ClaimantInfo, drop DropInfo) error {
	msg, err := FormatDropMessage(info, drop)
	if err != nil {
		return err
	}
	input := &sesv2.SendEmailInput{
		Destination: &sesv2.Destination{ToAddresses: []*string{aws.String(info.Handle)}},
		Content: &sesv2.EmailContent{
			Simple: &sesv2.Message{
				Subject: &sesv2.Content{Data: aws.String(msg.Subject), Charset: aws.String(charset)},
				Body: &sesv2.Body{
					Html: &sesv2.Content{Data: aws.String(msg.HTML + unsubscribeFooter), Charset: aws.String(charset)},
				},
			},
		},
		FromEmailAddress: aws.String(e.source),
		ListManagementOptions: &sesv2.ListManagementOptions{
			ContactListName: aws.String(contactListName),
			TopicName:       aws.String(string(drop.Type)),
		},
	}

	var status int
	captureStatus := func(r *request.Request) {
		r.Handlers.Complete.PushBack(func(r *request.Request) {
			if r.HTTPResponse != nil {
				status = r.HTTPResponse.StatusCode
			}
		})
	}
	out, err := e.client.SendEmailWithContext(ctx, input, captureStatus)
	if err != nil {
		e.logger.Printf("notify email: send to %s failed: %v", info.Handle, err)
		return &DeliveryError{Channel: ChannelEmail, Handle: info.Handle, Status: status, Err: err}
	}
	if status != 0 && status != http.StatusOK {
		e.logger.Printf("notify email: send to %s returned status %d", info.Handle, status)
		return &DeliveryError{Channel: ChannelEmail, Handle: info.Handle, Status: status}
	}
	if out != nil && out.MessageId != nil {
		e.logger.Printf("notify email: sent to %s message_id=%s", info.Handle, *out.MessageId)
	}
	return nil
}
